package imapclient_test

import (
	"testing"

	"github.com/mailwire/imap"
)

// testRename 测试 RENAME 命令：它是唯一改由 internal/engine.Handler
// 驱动字面量门控的命令，所以这里特意覆盖一个非 ASCII 邮箱名——
// engineEncoder 不查看 UTF8=ACCEPT，无论是否已启用，非 ASCII 邮箱名
// 都以字面量写出——以便端到端地练到 engineEncoder 的分块逻辑，而不只是
// CREATE/LIST 那样的纯原子参数命令。
func testRename(t *testing.T, newName string, utf8Accept bool) {
	client, server := newClientServerPair(t, imap.ConnStateAuthenticated)
	defer client.Close() // 确保在测试结束时关闭客户端
	defer server.Close() // 确保在测试结束时关闭服务器

	if utf8Accept {
		if !client.Caps().Has(imap.CapUTF8Accept) {
			t.Skipf("缺少 UTF8=ACCEPT 支持")
		}
		if data, err := client.Enable(imap.CapUTF8Accept).Wait(); err != nil {
			t.Fatalf("Enable(CapUTF8Accept) = %v", err)
		} else if !data.Caps.Has(imap.CapUTF8Accept) {
			t.Fatalf("服务器拒绝启用 UTF8=ACCEPT")
		}
	}

	if err := client.Rename("INBOX", newName).Wait(); err != nil {
		t.Fatalf("Rename() = %v", err)
	}

	listCmd := client.List("", newName, nil)
	mailboxes, err := listCmd.Collect()
	if err != nil {
		t.Errorf("List() = %v", err)
	} else if len(mailboxes) != 1 || mailboxes[0].Mailbox != newName {
		t.Errorf("List() = %v, 希望有一个名称为 %q 的条目", mailboxes, newName)
	}
}

// TestRename 测试 RENAME 命令的各种情况。
func TestRename(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		testRename(t, "Archive", false)
	})

	t.Run("unicode_utf7", func(t *testing.T) {
		testRename(t, "Cafè", false) // 没有 UTF8=ACCEPT：非 ASCII 字节必须改走字面量
	})
	t.Run("unicode_utf8", func(t *testing.T) {
		testRename(t, "Cafè", true) // 有 UTF8=ACCEPT：engineEncoder 仍以字面量写出非 ASCII 名称
	})
}

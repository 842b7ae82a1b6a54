package internal

import (
	"github.com/mailwire/imap"
	"github.com/mailwire/imap/internal/imapwire"
)

// ExpectFlag 读取一个必须存在的标志。
func ExpectFlag(dec *imapwire.Decoder) (imap.Flag, error) {
	var flag imap.Flag
	if !dec.Flag(&flag) {
		return "", dec.Err()
	}
	return flag, nil
}

// ExpectFlagList 读取一个括号包裹的标志列表。
func ExpectFlagList(dec *imapwire.Decoder) ([]imap.Flag, error) {
	var flags []imap.Flag
	err := dec.ExpectList(func() error {
		flag, err := ExpectFlag(dec)
		if err != nil {
			return err
		}
		flags = append(flags, flag)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flags, nil
}

// ExpectMailboxAttrList 读取一个括号包裹的邮箱属性列表。
func ExpectMailboxAttrList(dec *imapwire.Decoder) ([]imap.MailboxAttr, error) {
	var attrs []imap.MailboxAttr
	err := dec.ExpectList(func() error {
		var attr imap.MailboxAttr
		if !dec.MailboxAttr(&attr) {
			return dec.Err()
		}
		attrs = append(attrs, attr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attrs, nil
}

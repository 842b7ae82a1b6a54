package imapclient

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mailwire/imap/internal/engine"
)

const idleRestartInterval = 28 * time.Minute // IDLE 命令重启间隔

// Idle 发送 IDLE 命令。
//
// 与其他命令不同，此方法会阻塞，直到服务器确认该命令。
// 成功后，IDLE 命令将运行，其他命令无法发送。
// 调用者必须调用 IdleCommand.Close 来停止 IDLE 并解除客户端的阻塞。
//
// 此命令要求支持 IMAP4rev2 或 IDLE 扩展。IDLE
// 命令会自动重启，以避免因不活动超时而断开连接。
func (c *Client) Idle() (*IdleCommand, error) {
	child, err := c.idle() // 发送 IDLE 命令
	if err != nil {
		return nil, err
	}

	cmd := &IdleCommand{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go cmd.run(c, child) // 启动 IDLE 命令的运行
	return cmd, nil
}

// IdleCommand 表示 IDLE 命令。
//
// 最初，IDLE 命令正在运行。服务器可能会发送单方面的数据。
// 在 IDLE 运行期间，客户端无法发送任何命令。
//
// 必须调用 Close 来停止 IDLE 命令。
type IdleCommand struct {
	stopped atomic.Bool
	stop    chan struct{}
	done    chan struct{}

	err       error
	lastChild *idleCommand
}

// run 运行 IDLE 命令。
func (cmd *IdleCommand) run(c *Client, child *idleCommand) {
	defer close(cmd.done) // 关闭完成通道

	timer := time.NewTimer(idleRestartInterval) // 创建重启定时器
	defer timer.Stop()

	defer func() {
		if child != nil {
			if err := child.Close(); err != nil && cmd.err == nil {
				cmd.err = err // 记录关闭错误
			}
		}
	}()

	for {
		select {
		case <-timer.C: // 如果定时器到期
			timer.Reset(idleRestartInterval) // 重置定时器

			if cmd.err = child.Close(); cmd.err != nil {
				return // 关闭子命令出错
			}
			if child, cmd.err = c.idle(); cmd.err != nil {
				return // 发送新的 IDLE 命令出错
			}
		case <-c.decCh: // 如果接收到解码通道数据
			cmd.lastChild = child
			return
		case <-cmd.stop: // 如果收到停止信号
			cmd.lastChild = child
			return
		}
	}
}

// Close 停止 IDLE 命令。
//
// 此方法会阻塞，直到停止 IDLE 的命令被写入，但不等待服务器的响应。
// 调用者可以使用 Wait 来等待服务器响应。
func (cmd *IdleCommand) Close() error {
	if cmd.stopped.Swap(true) {
		return fmt.Errorf("imapclient: IDLE 已经关闭")
	}
	close(cmd.stop) // 发送停止信号
	<-cmd.done      // 等待完成
	return cmd.err  // 返回错误
}

// Wait 阻塞直到 IDLE 命令完成。
func (cmd *IdleCommand) Wait() error {
	<-cmd.done
	if cmd.err != nil {
		return cmd.err // 返回错误
	}
	return cmd.lastChild.Wait() // 等待最后一个子命令完成
}

// idle 发送 IDLE 命令并返回命令句柄。
//
// 与其它命令不同，IDLE 的字面量门控和模式切换交给
// internal/engine.Handler 驱动：IDLE 没有字面量，但它完全占用连接
// 直到 DONE 发出为止，这正是 engine.ModeIdle 存在的理由——Handler
// 在 "<tag> IDLE\r\n" 写完的瞬间就把模式切到 ModeIdle，使随后那个
// 没有标签的 "+ idling" 续请求被当作一等事件转发给 engineDeliver，
// 而不是被内部当成某个排队字面量的续请求消费掉。
func (c *Client) idle() (*idleCommand, error) {
	cmd := &idleCommand{client: c}
	tag := c.beginEngineCommand(cmd)

	contCh := make(chan struct{}, 1)
	c.mutex.Lock()
	c.engineContCh = contCh
	c.mutex.Unlock()

	future, err := c.engineHandler.Submit(engine.TaggedCommand{
		Tag:        tag,
		Command:    idleStart{},
		EntersMode: engine.ModeIdle,
	})
	if err != nil {
		c.setWriteTimeout(0)
		c.encMutex.Unlock()
		c.closeWithError(err)
		return nil, err
	}
	if err := future.Wait(); err != nil {
		c.setWriteTimeout(0)
		c.encMutex.Unlock()
		c.closeWithError(err)
		return nil, err
	}

	// IDLE 一旦完全写出，encMutex 必须一直锁着，直到 Close 提交
	// IdleDone 为止——这期间连接只属于这一个 IDLE 会话，任何其他
	// 命令都不能开始写入。
	waitErrCh := make(chan error, 1)
	go func() { waitErrCh <- cmd.wait() }()

	select {
	case <-contCh:
		return cmd, nil
	case err := <-waitErrCh:
		c.setWriteTimeout(0)
		c.encMutex.Unlock()
		return nil, err
	}
}

// idleCommand 表示一个单独的 IDLE 命令，没有重启逻辑。
type idleCommand struct {
	commandBase
	client *Client
}

// Close 停止 IDLE 命令。
//
// 此方法会阻塞，直到停止 IDLE 的命令被写入，但不等待服务器的响应。
// 调用者可以使用 Wait 来等待服务器响应。
func (cmd *idleCommand) Close() error {
	if cmd.err != nil {
		return cmd.err // 如果已有错误，返回错误
	}
	if cmd.client == nil {
		return fmt.Errorf("imapclient: IDLE 命令被关闭两次")
	}
	c := cmd.client
	cmd.client = nil

	c.setWriteTimeout(cmdWriteTimeout)
	_, err := c.engineHandler.Submit(engine.IdleDone{}) // 发送 DONE，模式回到 expecting-responses
	c.setWriteTimeout(0)
	c.encMutex.Unlock() // 释放 idle 期间一直持有的 encMutex
	return err
}

// Wait 阻塞直到 IDLE 命令完成。
//
// Wait 只能在 Close 之后调用。
func (cmd *idleCommand) Wait() error {
	if cmd.client != nil {
		panic("imapclient: idleCommand.Close 必须在 Wait 之前调用")
	}
	return cmd.wait() // 等待命令完成
}

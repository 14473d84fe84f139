package kiosk

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// LineCapture 把按行输入的文本当作扫码设备。USB 扫码枪会把二维码内容当作键盘输入并以回车结尾。
// 底层 Reader 只会被一个协程读取，设备关闭期间读到的行被丢弃。
type LineCapture struct {
	Reader io.Reader

	once  sync.Once
	lines chan string

	mu     sync.Mutex
	active chan string
	eof    bool
}

func NewLineCapture(r io.Reader) *LineCapture {
	return &LineCapture{Reader: r}
}

func (c *LineCapture) start() {
	c.lines = make(chan string)
	go func() {
		defer close(c.lines)
		scanner := bufio.NewScanner(c.Reader)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				c.lines <- line
			}
		}
	}()
	go c.forward()
}

func (c *LineCapture) forward() {
	for line := range c.lines {
		c.mu.Lock()
		out := c.active
		c.mu.Unlock()
		if out == nil {
			continue
		}
		select {
		case out <- line:
		default:
		}
	}
	c.mu.Lock()
	c.eof = true
	if c.active != nil {
		close(c.active)
		c.active = nil
	}
	c.mu.Unlock()
}

func (c *LineCapture) Open(ctx context.Context) (<-chan string, error) {
	if c.Reader == nil {
		return nil, errors.New("no input device")
	}

	c.mu.Lock()
	if c.eof {
		c.mu.Unlock()
		return nil, io.EOF
	}
	if c.active != nil {
		c.mu.Unlock()
		return nil, errors.New("capture already open")
	}
	out := make(chan string, 1)
	c.active = out
	c.mu.Unlock()

	// 先登记输出通道再开始读取，避免第一行被丢弃
	c.once.Do(c.start)
	return out, nil
}

func (c *LineCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
	return nil
}

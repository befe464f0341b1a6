// Copyright 2026 The stryd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatcher

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/stryd/common"
	"github.com/packetd/stryd/confengine"
	"github.com/packetd/stryd/internal/rescue"
	"github.com/packetd/stryd/logger"
	"github.com/packetd/stryd/protocol"
)

func newError(format string, args ...any) error {
	format = "dispatcher: " + format
	return errors.Errorf(format, args...)
}

const defaultAddress = ":4000"

// Config 服务监听配置
//
// Protocol 为透传给编解码层的自由选项 目前仅支持 maxPayload
type Config struct {
	Address     string         `config:"address"`
	ReadTimeout time.Duration  `config:"readTimeout"`
	Protocol    map[string]any `config:"protocol"`
}

func (c Config) GetAddress() string {
	if c.Address == "" {
		return defaultAddress
	}
	return c.Address
}

func (c Config) maxPayload() (int, error) {
	opts := common.Options(c.Protocol)
	if !opts.Has("maxPayload") {
		return protocol.DefaultMaxPayload, nil
	}

	n, err := opts.GetInt("maxPayload")
	if err != nil {
		return 0, newError("invalid maxPayload: %v", err)
	}
	if n < protocol.MinPayloadLimit || n >= protocol.MaxPayloadLimit {
		return 0, newError("maxPayload %d out of range [%d, %d)", n, protocol.MinPayloadLimit, protocol.MaxPayloadLimit)
	}
	return n, nil
}

// Dispatcher 负责 TCP 监听以及逐链接的请求分发
//
// 每条链接独占一个 goroutine 链接内严格串行
// 读取 -> 解码 -> 处理 -> 编码 -> 写入 上一个响应写完之前不会继续读 socket
type Dispatcher struct {
	config     Config
	maxPayload int

	ln    net.Listener
	mut   sync.Mutex
	conns map[net.Conn]struct{}
	done  chan struct{}
	wg    sync.WaitGroup

	accumulated *globalStats
}

// New 创建并返回 Dispatcher 实例
func New(conf *confengine.Config) (*Dispatcher, error) {
	var config Config
	if err := conf.UnpackChild("dispatcher", &config); err != nil {
		return nil, err
	}

	maxPayload, err := config.maxPayload()
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		config:      config,
		maxPayload:  maxPayload,
		conns:       make(map[net.Conn]struct{}),
		done:        make(chan struct{}),
		accumulated: &globalStats{},
	}, nil
}

// Listen 绑定监听地址 与 Serve 分离方便调用方拿到实际端口
func (d *Dispatcher) Listen() error {
	ln, err := net.Listen("tcp", d.config.GetAddress())
	if err != nil {
		return err
	}
	d.ln = ln
	logger.Infof("dispatcher listening on %s", ln.Addr())
	return nil
}

// Addr 返回实际监听地址 必须在 Listen 成功之后调用
func (d *Dispatcher) Addr() net.Addr {
	return d.ln.Addr()
}

// Serve 进入 accept 循环 阻塞直至 Close
func (d *Dispatcher) Serve() error {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			select {
			case <-d.done:
				return nil
			default:
			}
			return err
		}

		d.trackConn(conn, true)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer d.trackConn(conn, false)
			d.handleConn(conn)
		}()
	}
}

// ListenAndServe 绑定地址并开始处理链接
func (d *Dispatcher) ListenAndServe() error {
	if err := d.Listen(); err != nil {
		return err
	}
	return d.Serve()
}

func (d *Dispatcher) trackConn(conn net.Conn, add bool) {
	d.mut.Lock()
	defer d.mut.Unlock()

	if add {
		d.conns[conn] = struct{}{}
		return
	}
	delete(d.conns, conn)
}

// Close 关闭监听与所有活跃链接 等待处理 goroutine 退出
func (d *Dispatcher) Close() error {
	close(d.done)

	var err error
	if d.ln != nil {
		err = d.ln.Close()
	}

	d.mut.Lock()
	for conn := range d.conns {
		conn.Close()
	}
	d.mut.Unlock()

	d.wg.Wait()
	return err
}

// StatsSnapshot 返回进程级统计快照
func (d *Dispatcher) StatsSnapshot() Snapshot {
	return d.accumulated.SnapshotStats()
}

func (d *Dispatcher) handleConn(nc net.Conn) {
	c := newConnection(nc, d.maxPayload, d.config.ReadTimeout, d.accumulated)
	defer rescue.HandleCrash("dispatcher", "connection "+c.id)
	defer nc.Close()

	connectionsTotal.Inc()
	connectionsActive.Inc()
	defer connectionsActive.Dec()

	c.log.Infof("accepted connection from %s", nc.RemoteAddr())
	c.serve()
	c.flushStats()
	c.log.Infof("closed connection")
}

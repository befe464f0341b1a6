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

package controller

import (
	"net/http"

	"github.com/hashicorp/go-multierror"

	"github.com/packetd/stryd/common"
	"github.com/packetd/stryd/confengine"
	"github.com/packetd/stryd/dispatcher"
	"github.com/packetd/stryd/internal/rescue"
	"github.com/packetd/stryd/logger"
	"github.com/packetd/stryd/server"
)

// Controller 负责组装并管理各组件的生命周期
//
// 核心组件为 dispatcher 管理端 HTTP 服务按需启用
type Controller struct {
	conf *confengine.Config
	disp *dispatcher.Dispatcher
	svr  *server.Server
}

// New 创建并返回 Controller 实例
func New(conf *confengine.Config) (*Controller, error) {
	var logOpts logger.Options
	if err := conf.UnpackChild("logger", &logOpts); err != nil {
		return nil, err
	}
	if conf.Has("logger") {
		logger.SetOptions(logOpts)
	}

	disp, err := dispatcher.New(conf)
	if err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		conf: conf,
		disp: disp,
		svr:  svr,
	}
	if svr != nil {
		c.setupServer()
	}
	return c, nil
}

// Start 启动各组件 监听失败立即返回错误
func (c *Controller) Start() error {
	if err := c.disp.Listen(); err != nil {
		return err
	}

	go func() {
		defer rescue.HandleCrash("dispatcher", "serve loop")
		if err := c.disp.Serve(); err != nil {
			logger.Errorf("dispatcher exited: %v", err)
		}
	}()

	if c.svr != nil {
		go func() {
			defer rescue.HandleCrash("admin", "serve loop")
			if err := c.svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("admin server exited: %v", err)
			}
		}()
	}

	recordBuildInfo()
	logger.Infof("starting %s", common.GetBuildInfo())
	return nil
}

// Stop 依次关闭各组件并聚合错误
func (c *Controller) Stop() error {
	var errs *multierror.Error
	errs = multierror.Append(errs, c.disp.Close())
	if c.svr != nil {
		errs = multierror.Append(errs, c.svr.Close())
	}
	return errs.ErrorOrNil()
}

// Reload 重新应用日志配置 监听地址与协议参数不支持热更新
func (c *Controller) Reload(conf *confengine.Config) error {
	var logOpts logger.Options
	if err := conf.UnpackChild("logger", &logOpts); err != nil {
		return err
	}
	if conf.Has("logger") {
		logger.SetOptions(logOpts)
	}
	c.conf = conf
	return nil
}

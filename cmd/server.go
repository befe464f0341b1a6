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

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/stryd/confengine"
	"github.com/packetd/stryd/controller"
	"github.com/packetd/stryd/internal/sigs"
	"github.com/packetd/stryd/logger"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the STRY compression server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := confengine.Empty()
		if configPath != "" {
			var err error
			cfg, err = confengine.LoadConfigPath(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
				os.Exit(1)
			}
		}

		ctr, err := controller.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create controller: %v\n", err)
			os.Exit(1)
		}
		if err := ctr.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start controller: %v\n", err)
			os.Exit(1)
		}

		h := sigs.NewHandler()
		var reloadTotal int
		for {
			select {
			case <-h.Shutdown:
				// 停止 accept 并关闭活跃链接后退出
				if err := ctr.Stop(); err != nil {
					logger.Errorf("failed to stop controller: %v", err)
				}
				return

			case <-h.Reload:
				reloadTotal++
				if configPath == "" {
					continue // 无配置文件运行 没什么可 reload 的
				}

				// 需要重新加载配置文件 reload 失败则保持原配置运行
				cfg, err := confengine.LoadConfigPath(configPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "failed to load config (count=%d): %v\n", reloadTotal, err)
					continue
				}

				start := time.Now()
				if err := ctr.Reload(cfg); err != nil {
					logger.Errorf("failed to reload config: %v", err)
				}
				logger.Infof("reload (count=%d) take %s", reloadTotal, time.Since(start))
			}
		}
	},
	Example: "# stryd server --config stryd.yaml",
}

var configPath string

func init() {
	serverCmd.Flags().StringVar(&configPath, "config", "", "Configuration file path (optional)")
	rootCmd.AddCommand(serverCmd)
}

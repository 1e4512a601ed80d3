// leavectl 运维命令行：数据库迁移、重置与管理员初始化。
// 这些操作不通过 HTTP 暴露。
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

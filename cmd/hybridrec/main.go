/*
hybridrec 命令行。

用法：

	hybridrec recommend -f testdata/fixture.yaml --user u1 --reasoning
	hybridrec track --user u1 --product P1 --action view
	hybridrec config
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rushteam/hybridrec/internal/cli"
)

// 构建时通过 ldflags 注入
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

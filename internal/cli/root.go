// Package cli 实现 hybridrec 命令行：基于配置装配引擎，对本地 fixture 或 Redis 中的数据生成推荐。
package cli

import (
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rushteam/hybridrec/config"
)

// globalFlags 是所有子命令共享的参数。
type globalFlags struct {
	configPath  string
	fixturePath string
}

// NewRootCmd 创建根命令。
func NewRootCmd(version string) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "hybridrec",
		Short: "Hybrid product recommendation engine",
		Long: `hybridrec combines behavioral, collaborative, content, complementary and
trending signals into one ranked list of product recommendations.

Configuration is read from defaults, then a YAML file (--config or
HYBRIDREC_CONFIG), then HYBRIDREC_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to YAML config file")
	root.PersistentFlags().StringVarP(&g.fixturePath, "fixture", "f", "", "Products/events fixture (YAML or JSON) loaded before running")

	root.AddCommand(NewRecommendCmd(g))
	root.AddCommand(NewTrackCmd(g))
	root.AddCommand(NewConfigCmd(g))
	return root
}

func (g *globalFlags) load() (*config.Config, error) {
	return config.Load(g.configPath)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/rushteam/hybridrec/core"
)

// NewTrackCmd 创建 track 命令：同步写入一条行为事件并输出写入后的事件。
func NewTrackCmd(g *globalFlags) *cobra.Command {
	var ev core.InteractionEvent
	var action string

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Record a user interaction",
		Example: `  hybridrec track --user u1 --product P1 --action view --duration 45
  hybridrec track --user u1 --product P2 --action purchase --order o-1001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev.Action = core.Action(action)

			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cfg, g.fixturePath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.tracker.Record(ctx, ev); err != nil {
				return err
			}
			recent, err := rt.interactions.GetUserInteractions(ctx, ev.UserID, ev.Action, 1)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), recent)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&ev.UserID, "user", "u", "", "User ID (required)")
	fl.StringVarP(&ev.ProductID, "product", "p", "", "Product ID (required)")
	fl.StringVarP(&action, "action", "a", string(core.ActionView), "view | cart | purchase | favorite | share")
	fl.Float64Var(&ev.DurationSeconds, "duration", 0, "View duration in seconds")
	fl.StringVar(&ev.OrderID, "order", "", "Order ID for purchases")
	fl.StringVar(&ev.Metadata.Referrer, "referrer", "", "Referrer")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

package cli

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rushteam/hybridrec/core"
)

type recommendFlags struct {
	contextPath string
	rctx        core.RecommendationContext
}

// NewRecommendCmd 创建 recommend 命令。
func NewRecommendCmd(g *globalFlags) *cobra.Command {
	f := &recommendFlags{}
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate recommendations for a user or product",
		Example: `  hybridrec recommend -f fixture.yaml --user u1 --limit 5 --reasoning
  hybridrec recommend -f fixture.yaml --product P1 --same-type
  hybridrec recommend -f fixture.yaml --context request.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, g, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.contextPath, "context", "", "JSON file with a full recommendation context; flags override its fields")
	fl.StringVarP(&f.rctx.UserID, "user", "u", "", "User ID")
	fl.StringVarP(&f.rctx.ProductID, "product", "p", "", "Product currently being viewed")
	fl.StringVar(&f.rctx.Category, "category", "", "Current category")
	fl.StringVar(&f.rctx.ProductType, "type", "", "Product type constraint")
	fl.BoolVar(&f.rctx.SameTypeOnly, "same-type", false, "Only recommend products of the same type")
	fl.IntVarP(&f.rctx.Limit, "limit", "n", 0, "Number of results (default from config, capped by max_limit)")
	fl.StringSliceVar(&f.rctx.Session.ViewedProducts, "viewed", nil, "Products viewed in this session")
	fl.StringSliceVar(&f.rctx.Session.CartItems, "cart", nil, "Products currently in the cart")
	fl.StringSliceVar(&f.rctx.History.FavoriteCategories, "favorite-categories", nil, "Favorite categories")
	fl.StringSliceVar(&f.rctx.ExcludeProducts, "exclude", nil, "Products to exclude")
	fl.BoolVar(&f.rctx.ExcludeRecentlyViewed, "exclude-viewed", false, "Exclude recently viewed products")
	fl.BoolVar(&f.rctx.IncludeReasoning, "reasoning", false, "Include human-readable reasoning")
	fl.StringVar(&f.rctx.Expression, "expr", "", "CEL filter expression, e.g. 'item.price < 100.0'")
	return cmd
}

func runRecommend(cmd *cobra.Command, g *globalFlags, f *recommendFlags) error {
	rctx, err := f.context(cmd)
	if err != nil {
		return err
	}

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

	res, err := rt.engine.GenerateRecommendations(ctx, rctx)
	if err != nil {
		return fmt.Errorf("generate recommendations: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

// context 合并 --context 文件与命令行参数，命令行中显式设置的参数优先。
func (f *recommendFlags) context(cmd *cobra.Command) (*core.RecommendationContext, error) {
	if f.contextPath == "" {
		rc := f.rctx
		return &rc, nil
	}

	data, err := os.ReadFile(f.contextPath)
	if err != nil {
		return nil, fmt.Errorf("read context: %w", err)
	}
	rc := &core.RecommendationContext{}
	if err := json.Unmarshal(data, rc); err != nil {
		return nil, fmt.Errorf("decode context %s: %w", f.contextPath, err)
	}

	changed := cmd.Flags().Changed
	if changed("user") {
		rc.UserID = f.rctx.UserID
	}
	if changed("product") {
		rc.ProductID = f.rctx.ProductID
	}
	if changed("category") {
		rc.Category = f.rctx.Category
	}
	if changed("type") {
		rc.ProductType = f.rctx.ProductType
	}
	if changed("same-type") {
		rc.SameTypeOnly = f.rctx.SameTypeOnly
	}
	if changed("limit") {
		rc.Limit = f.rctx.Limit
	}
	if changed("viewed") {
		rc.Session.ViewedProducts = f.rctx.Session.ViewedProducts
	}
	if changed("cart") {
		rc.Session.CartItems = f.rctx.Session.CartItems
	}
	if changed("favorite-categories") {
		rc.History.FavoriteCategories = f.rctx.History.FavoriteCategories
	}
	if changed("exclude") {
		rc.ExcludeProducts = f.rctx.ExcludeProducts
	}
	if changed("exclude-viewed") {
		rc.ExcludeRecentlyViewed = f.rctx.ExcludeRecentlyViewed
	}
	if changed("reasoning") {
		rc.IncludeReasoning = f.rctx.IncludeReasoning
	}
	if changed("expr") {
		rc.Expression = f.rctx.Expression
	}
	return rc, nil
}

package fetch

import (
	"context"
	"fmt"
)

// /bootstrap-static/
func (c *Client) BootstrapStatic(ctx context.Context, force bool) ([]byte, error) {
	return c.FetchRaw(ctx, "/bootstrap-static/", "bootstrap/bootstrap-static.json", force)
}

// /fixtures/?future=1
func (c *Client) FutureFixtures(ctx context.Context, force bool) ([]byte, error) {
	return c.FetchRaw(ctx, "/fixtures/?future=1", "fixtures/future.json", force)
}

// /element-summary/{element_id}/
func (c *Client) ElementSummary(ctx context.Context, elementID int, force bool) ([]byte, error) {
	return c.FetchRaw(ctx,
		fmt.Sprintf("/element-summary/%d/", elementID),
		fmt.Sprintf("element-summary/%d.json", elementID),
		force,
	)
}

// /event/{gw}/live/
func (c *Client) EventLive(ctx context.Context, gw int, force bool) ([]byte, error) {
	return c.FetchRaw(ctx,
		fmt.Sprintf("/event/%d/live/", gw),
		fmt.Sprintf("gw/%d/live.json", gw),
		force,
	)
}

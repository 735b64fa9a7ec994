package azure

import (
	"context"

	"github.com/juju/errors"
)

// ListSizes returns every VM size offered in the configured location.
func (c *Client) ListSizes(ctx context.Context) ([]string, error) {
	var sizes []string
	pager := c.sizes.NewListPager(c.cfg.Location, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Annotatef(err, "listing sizes in %s", c.cfg.Location)
		}
		for _, s := range page.Value {
			if s == nil || s.Name == nil {
				continue
			}
			sizes = append(sizes, *s.Name)
		}
	}
	return sizes, nil
}

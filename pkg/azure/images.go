package azure

import (
	"context"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

const latestVersion = "latest"

// LookupManagedImage returns the ARM id of a managed image.
func (c *Client) LookupManagedImage(ctx context.Context, resourceGroup, imageName string) (string, error) {
	resp, err := c.images.Get(ctx, resourceGroup, imageName, nil)
	if err != nil {
		return "", classify(err, "managed image %s/%s", resourceGroup, imageName)
	}
	return toValue(resp.ID), nil
}

// LookupClassicImage returns the ARM id of a marketplace image version.
// Version "latest" (or empty) selects the highest published version.
func (c *Client) LookupClassicImage(ctx context.Context, location, publisher, offer, sku, version string) (string, error) {
	urn := strings.Join([]string{publisher, offer, sku, version}, ":")
	if version != "" && !strings.EqualFold(version, latestVersion) {
		resp, err := c.vmImages.Get(ctx, location, publisher, offer, sku, version, nil)
		if err != nil {
			return "", classify(err, "image %s in %s", urn, location)
		}
		return toValue(resp.ID), nil
	}

	resp, err := c.vmImages.List(ctx, location, publisher, offer, sku, nil)
	if err != nil {
		return "", classify(err, "listing versions of image %s in %s", urn, location)
	}
	var (
		bestID      string
		bestVersion string
	)
	for _, img := range resp.VirtualMachineImageResourceArray {
		if img == nil || img.Name == nil {
			continue
		}
		if bestID == "" || compareVersions(*img.Name, bestVersion) > 0 {
			bestID = toValue(img.ID)
			bestVersion = *img.Name
		}
	}
	if bestID == "" {
		return "", errors.NotFoundf("image %s in %s", urn, location)
	}
	return bestID, nil
}

// compareVersions compares dotted versions numerically per component.
// Non-numeric components fall back to string comparison.
func compareVersions(a, b string) int {
	ap := strings.Split(a, ".")
	bp := strings.Split(b, ".")
	for i := 0; i < len(ap) || i < len(bp); i++ {
		var as, bs string
		if i < len(ap) {
			as = ap[i]
		}
		if i < len(bp) {
			bs = bp[i]
		}
		ai, aerr := strconv.Atoi(as)
		bi, berr := strconv.Atoi(bs)
		if as == "" {
			ai, aerr = 0, nil
		}
		if bs == "" {
			bi, berr = 0, nil
		}
		switch {
		case aerr == nil && berr == nil:
			if ai != bi {
				if ai < bi {
					return -1
				}
				return 1
			}
		case as != bs:
			if as < bs {
				return -1
			}
			return 1
		}
	}
	return 0
}

func toValue[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

package mast

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Observation is one row of a Mast.Caom.Filtered result, reduced to the
// columns the pipeline reads.
type Observation struct {
	ObsID      int64   `json:"obsid"`
	TargetName string  `json:"target_name"`
	Collection string  `json:"obs_collection"`
	Provenance string  `json:"provenance_name"`
	Sector     int     `json:"sequence_number"`
	ExpTime    float64 `json:"t_exptime"`
	RA         float64 `json:"s_ra"`
	Dec        float64 `json:"s_dec"`
}

// Product is one row of a Mast.Caom.Products result.
type Product struct {
	ObsID       int64  `json:"parent_obsid"`
	Filename    string `json:"productFilename"`
	URI         string `json:"dataURI"`
	Type        string `json:"productType"`
	Description string `json:"description"`
	Size        int64  `json:"size"`
}

type filter struct {
	ParamName string `json:"paramName"`
	Values    []any  `json:"values"`
}

// SearchTASOC lists TASOC light-curve observations of a TIC target,
// newest sector first. sector <= 0 means all sectors.
func (c *Client) SearchTASOC(ctx context.Context, tic int64, sector int) ([]Observation, error) {
	filters := []filter{
		{ParamName: "provenance_name", Values: []any{"TASOC"}},
		{ParamName: "target_name", Values: []any{strconv.FormatInt(tic, 10)}},
	}
	if sector > 0 {
		filters = append(filters, filter{
			ParamName: "sequence_number",
			Values:    []any{map[string]int{"min": sector, "max": sector}},
		})
	}

	var obs []Observation
	err := c.invoke(ctx, "Mast.Caom.Filtered", map[string]any{
		"columns": "*",
		"filters": filters,
	}, &obs)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		if sector > 0 {
			return nil, fmt.Errorf("mast: no TASOC light curve for TIC %d in sector %d", tic, sector)
		}
		return nil, fmt.Errorf("mast: no TASOC light curve for TIC %d", tic)
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Sector > obs[j].Sector })
	return obs, nil
}

// Products lists the downloadable products of an observation.
func (c *Client) Products(ctx context.Context, obsid int64) ([]Product, error) {
	var prods []Product
	err := c.invoke(ctx, "Mast.Caom.Products", map[string]any{
		"obsid": strconv.FormatInt(obsid, 10),
	}, &prods)
	if err != nil {
		return nil, err
	}
	return prods, nil
}

// LightCurveProduct picks the TASOC light-curve FITS out of a product
// list. TASOC ships one science light curve per observation; anything
// else (previews, readmes) is skipped.
func LightCurveProduct(prods []Product) (Product, error) {
	var matches []Product
	for _, p := range prods {
		if strings.HasSuffix(p.Filename, "_lc.fits") {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return Product{}, fmt.Errorf("mast: no *_lc.fits product among %d products", len(prods))
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, p := range matches {
			names[i] = p.Filename
		}
		return Product{}, fmt.Errorf("mast: ambiguous light-curve products: %s", strings.Join(names, ", "))
	}
}

package polymarket

// gamma.go — metadata de resolución vía Gamma API.
//
// El CLOB marca el token ganador con cierto retraso; Gamma expone el
// estado de resolución UMA antes. El redeemer consulta ambos antes de
// gastar cuota del relayer en una condición aún no resuelta.

import (
	"context"
	"fmt"
	"strings"
)

// MarketResolution es la vista mínima de resolución que expone Gamma.
type MarketResolution struct {
	ConditionID string
	Closed      bool
	UMAResolved bool
	Volume24h   float64
}

// FetchResolution consulta Gamma por el estado de resolución de una condición.
func (c *Client) FetchResolution(ctx context.Context, conditionID string) (MarketResolution, error) {
	url := fmt.Sprintf("%s/markets?condition_ids=%s", c.gammaBase, conditionID)

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return MarketResolution{}, fmt.Errorf("gamma.FetchResolution %s: %w", conditionID, err)
	}
	if len(resp) == 0 {
		return MarketResolution{}, fmt.Errorf("gamma.FetchResolution %s: market not found", conditionID)
	}

	raw := resp[0]
	vol, _ := raw.Volume24h.Float64()
	return MarketResolution{
		ConditionID: raw.ConditionID,
		Closed:      raw.Closed,
		UMAResolved: strings.EqualFold(raw.UMAStatus, "resolved"),
		Volume24h:   vol,
	}, nil
}

// IsRedeemable combina CLOB y Gamma: un mercado es canjeable cuando el
// CLOB reporta token ganador, o cuando Gamma lo da por cerrado y resuelto.
func (c *Client) IsRedeemable(ctx context.Context, conditionID string) (bool, error) {
	m, err := c.GetMarket(ctx, conditionID)
	if err == nil && m.Resolved {
		return true, nil
	}

	res, gerr := c.FetchResolution(ctx, conditionID)
	if gerr != nil {
		if err != nil {
			return false, fmt.Errorf("polymarket.IsRedeemable: clob: %w; gamma: %v", err, gerr)
		}
		return false, nil
	}
	return res.Closed && res.UMAResolved, nil
}

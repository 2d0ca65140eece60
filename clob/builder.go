package clob

import (
	"context"
	"net/http"

	"github.com/soleret/polyclob/auth"
	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/errs"
)

// BuilderClient is an AuthenticatedClient whose private requests also carry
// builder attribution headers, crediting executions to the builder behind
// the supplied credential source.
type BuilderClient struct {
	*AuthenticatedClient
}

// PromoteToBuilder upgrades the client to submit builder-attributed
// requests. The builder credentials are probed against the venue before the
// promoted client is returned; the receiver keeps working unattributed
// either way.
func (ac *AuthenticatedClient) PromoteToBuilder(ctx context.Context, src auth.BuilderSource) (*BuilderClient, error) {
	const op = "clob.promote_to_builder"

	if src == nil {
		return nil, errs.Validation(op, "builder credential source is nil")
	}
	promoted := *ac
	promoted.builderSrc = src
	bc := &BuilderClient{AuthenticatedClient: &promoted}
	if _, err := bc.BuilderAPIKeys(ctx); err != nil {
		return nil, errs.New(op, errs.CodeAuth,
			errs.WithMessage("builder credentials rejected"), errs.WithCause(err))
	}
	return bc, nil
}

// BuilderAPIKeys lists the builder's API keys, including revoked ones.
func (bc *BuilderClient) BuilderAPIKeys(ctx context.Context) ([]types.BuilderAPIKeyResponse, error) {
	var out []types.BuilderAPIKeyResponse
	err := bc.doAuth(ctx, "clob.builder_api_keys", request{
		method: http.MethodGet,
		path:   "/auth/builder-api-key",
		out:    &out,
	})
	return out, err
}

// RevokeBuilderAPIKey revokes the builder API key the promoted client
// authenticates with.
func (bc *BuilderClient) RevokeBuilderAPIKey(ctx context.Context) error {
	return bc.doAuth(ctx, "clob.revoke_builder_api_key", request{
		method: http.MethodDelete,
		path:   "/auth/builder-api-key",
	})
}

// BuilderTrades fetches one page of trades attributed to the builder.
// Passing an empty cursor starts from the beginning.
func (bc *BuilderClient) BuilderTrades(ctx context.Context, req types.TradesRequest, cursor string) (types.Page[types.BuilderTradeResponse], error) {
	var out types.Page[types.BuilderTradeResponse]
	err := bc.doAuth(ctx, "clob.builder_trades", request{
		method: http.MethodGet,
		path:   "/builder/trades",
		query:  withCursor(req.Query(), cursor),
		out:    &out,
	})
	return out, err
}

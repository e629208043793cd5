package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"pokergame/internal/config"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickMatchResponse is the payload returned to clients when requesting a joinable table.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

type quickMatchRequest struct {
	Table string `json:"table,omitempty"`
}

// quickMatchQuery finds poker tables in the lobby phase with at least one open seat,
// limited to one blind tier when table is set.
func quickMatchQuery(table string) string {
	query := fmt.Sprintf("+label.%s:>=1 +label.game:poker +label.phase:lobby", MatchLabelKeyOpenSeats)
	if table != "" {
		query += fmt.Sprintf(" +label.%s:%s", MatchLabelKeyTable, table)
	}
	return query
}

type matchFinder interface {
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize *int, maxSize *int, query string) ([]*api.Match, error)
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

func (h *rpcHandlers) quickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return findOrCreateTable(ctx, logger, nk, h.cfg, payload)
}

func findOrCreateTable(ctx context.Context, logger runtime.Logger, nk matchFinder, cfg *config.GameConfig, payload string) (string, error) {
	req := quickMatchRequest{}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", codeInvalidArgument)
		}
	}
	table := cfg.ResolveTable(req.Table)

	limit := 10
	authoritative := true
	minSize := 0
	maxSize := 64

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, quickMatchQuery(table))
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	// Seats are taken through the join op code once the player is in the match.
	matchID, err := nk.MatchCreate(ctx, MatchNamePokerTable, map[string]interface{}{"table": table})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

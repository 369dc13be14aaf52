package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
	"github.com/valiantbucks/valiant-bucks/internal/bracket"
	"github.com/valiantbucks/valiant-bucks/internal/db"
	"github.com/valiantbucks/valiant-bucks/internal/httputil"
	"github.com/valiantbucks/valiant-bucks/internal/middleware"
	"github.com/valiantbucks/valiant-bucks/internal/service"
	"github.com/valiantbucks/valiant-bucks/internal/store"
)

func newRouter(sessionManager *scs.SessionManager) http.Handler {
	dbConn := db.GetDB()
	bracketStore := store.NewBracketStore(dbConn)
	ledgerStore := store.NewLedgerStore(dbConn)
	userStore := store.NewUserStore(dbConn)

	bracketService := service.NewBracketService(dbConn, bracketStore, ledgerStore)
	seedingService := service.NewSeedingService(dbConn, bracketStore)
	settlementService := service.NewSettlementService(dbConn, bracketStore, ledgerStore)
	// Single instance: it carries the per-bracket locks that serialize
	// winner declarations.
	matchService := service.NewMatchService(dbConn, bracketStore, settlementService)
	entryService := service.NewEntryService(dbConn, bracketStore, ledgerStore)
	userService := service.NewUserService(dbConn, userStore)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.LoadAuthenticatedUser(sessionManager, userStore))

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := userService.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		sessionManager.Put(r.Context(), "userID", user.ID.String())
		http.Redirect(w, r, "/", http.StatusFound)
	})

	r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		user, err := userService.EnsureGuestUser(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to login as guest", err)
			return
		}

		sessionManager.Put(r.Context(), "userID", user.ID.String())
		httputil.JSON(w, http.StatusOK, user)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Destroy(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/api/brackets/active", func(w http.ResponseWriter, r *http.Request) {
		data, err := bracketService.ActiveBracket(r.Context(), r.URL.Query().Get("gender"))
		if err != nil {
			httputil.InternalServerError(w, "Failed to fetch bracket", err)
			return
		}
		if data == nil {
			httputil.JSON(w, http.StatusOK, map[string]interface{}{"bracket": nil, "teams": []struct{}{}, "games": []struct{}{}})
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]interface{}{"bracket": data.Bracket, "teams": data.Teams, "games": data.Games})
	})

	r.Get("/api/brackets/{id}", func(w http.ResponseWriter, r *http.Request) {
		data, err := bracketService.GetBracketData(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err, "Failed to fetch bracket")
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]interface{}{"bracket": data.Bracket, "teams": data.Teams, "games": data.Games})
	})

	r.Get("/api/brackets/{id}/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		rows, err := bracketService.Leaderboard(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err, "Failed to fetch leaderboard")
			return
		}
		if rows == nil {
			rows = []store.LeaderboardRow{}
		}
		httputil.JSON(w, http.StatusOK, rows)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/api/me", func(w http.ResponseWriter, r *http.Request) {
			user := middleware.GetAuthenticatedUser(r.Context())
			if user == nil {
				httputil.Unauthorized(w, "Authentication required")
				return
			}
			httputil.JSON(w, http.StatusOK, user)
		})

		r.Get("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			records, err := ledgerStore.TransactionsByUser(r.Context(), userID)
			if err != nil {
				httputil.InternalServerError(w, "Failed to fetch transactions", err)
				return
			}
			httputil.JSON(w, http.StatusOK, records)
		})

		r.Get("/api/brackets/{id}/entries/me", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			entry, err := entryService.GetEntryForUser(r.Context(), chi.URLParam(r, "id"), userID)
			if err != nil {
				writeServiceError(w, err, "Failed to fetch entry")
				return
			}
			httputil.JSON(w, http.StatusOK, entry)
		})

		r.Post("/api/brackets/{id}/entries", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())

			var req struct {
				Picks bracket.Picks `json:"picks"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			entry, err := entryService.SubmitEntry(r.Context(), chi.URLParam(r, "id"), userID, req.Picks)
			if err != nil {
				writeServiceError(w, err, "Failed to submit bracket")
				return
			}
			httputil.JSON(w, http.StatusCreated, entry)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RequireAdmin)

		r.Get("/api/admin/brackets", func(w http.ResponseWriter, r *http.Request) {
			brackets, err := bracketService.ListBrackets(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to fetch brackets", err)
				return
			}
			if brackets == nil {
				brackets = []bracket.Bracket{}
			}
			httputil.JSON(w, http.StatusOK, brackets)
		})

		r.Post("/api/brackets", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Name           string  `json:"name"`
				Season         *string `json:"season"`
				Gender         string  `json:"gender"`
				Size           int     `json:"size"`
				EntryFee       int64   `json:"entryFee"`
				PayoutPerPoint *int64  `json:"payoutPerPoint"`
				Status         string  `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			payoutPerPoint := int64(1000)
			if req.PayoutPerPoint != nil {
				payoutPerPoint = *req.PayoutPerPoint
			}

			created, err := bracketService.CreateBracket(r.Context(), service.CreateBracketInput{
				Name:           req.Name,
				Season:         req.Season,
				Gender:         req.Gender,
				Size:           req.Size,
				EntryFee:       req.EntryFee,
				PayoutPerPoint: payoutPerPoint,
				Status:         bracket.BracketStatus(req.Status),
			})
			if err != nil {
				writeServiceError(w, err, "Failed to create bracket")
				return
			}
			httputil.JSON(w, http.StatusCreated, created)
		})

		r.Put("/api/brackets/{id}", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Name           *string `json:"name"`
				Season         *string `json:"season"`
				Gender         *string `json:"gender"`
				EntryFee       *int64  `json:"entryFee"`
				PayoutPerPoint *int64  `json:"payoutPerPoint"`
				Status         *string `json:"status"`
				Size           *int    `json:"size"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			input := service.UpdateBracketInput{
				Name:           req.Name,
				Season:         req.Season,
				Gender:         req.Gender,
				EntryFee:       req.EntryFee,
				PayoutPerPoint: req.PayoutPerPoint,
				Size:           req.Size,
			}
			if req.Status != nil {
				status := bracket.BracketStatus(*req.Status)
				input.Status = &status
			}

			updated, err := bracketService.UpdateBracket(r.Context(), chi.URLParam(r, "id"), input)
			if err != nil {
				writeServiceError(w, err, "Failed to update bracket")
				return
			}
			httputil.JSON(w, http.StatusOK, updated)
		})

		r.Delete("/api/brackets/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := bracketService.DeleteBracket(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeServiceError(w, err, "Failed to delete bracket")
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]string{"message": "Bracket deleted"})
		})

		r.Put("/api/brackets/{id}/teams", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Teams []struct {
					Name string `json:"name"`
					Seed int    `json:"seed"`
				} `json:"teams"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			inputs := make([]service.TeamInput, 0, len(req.Teams))
			for _, team := range req.Teams {
				inputs = append(inputs, service.TeamInput{Name: team.Name, Seed: team.Seed})
			}

			if err := seedingService.ReplaceTeams(r.Context(), chi.URLParam(r, "id"), inputs); err != nil {
				writeServiceError(w, err, "Failed to update teams")
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]string{"message": "Teams updated"})
		})

		r.Post("/api/brackets/{id}/seed", func(w http.ResponseWriter, r *http.Request) {
			if err := seedingService.SeedGames(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeServiceError(w, err, "Failed to seed games")
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]string{"message": "Bracket games seeded"})
		})

		r.Put("/api/brackets/{id}/games/{gameID}/winner", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				WinnerTeamID *string `json:"winnerTeamId"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			var winnerTeamID *uuid.UUID
			if req.WinnerTeamID != nil && *req.WinnerTeamID != "" {
				id, err := uuid.Parse(*req.WinnerTeamID)
				if err != nil {
					httputil.BadRequest(w, "Invalid winner team ID", err)
					return
				}
				winnerTeamID = &id
			}

			err := matchService.SetWinner(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "gameID"), winnerTeamID)
			if err != nil {
				writeServiceError(w, err, "Failed to update winner")
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]string{"message": "Winner updated and bracket recalculated"})
		})

		r.Post("/api/brackets/{id}/recalc", func(w http.ResponseWriter, r *http.Request) {
			if err := settlementService.RecalcEntries(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeServiceError(w, err, "Failed to recalculate entries")
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]string{"message": "Entries recalculated"})
		})

		r.Get("/api/brackets/{id}/stats", func(w http.ResponseWriter, r *http.Request) {
			stats, err := bracketService.Stats(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeServiceError(w, err, "Failed to fetch stats")
				return
			}
			httputil.JSON(w, http.StatusOK, stats)
		})

		r.Delete("/api/entries/{entryID}", func(w http.ResponseWriter, r *http.Request) {
			if err := entryService.DeleteEntry(r.Context(), chi.URLParam(r, "entryID")); err != nil {
				writeServiceError(w, err, "Failed to delete entry")
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]string{"message": "Entry deleted and fee refunded"})
		})
	})

	return r
}

// writeServiceError maps domain errors onto HTTP statuses: missing rows to
// 404, duplicate/seeded conflicts to 409, validation failures to 400, and
// everything else to 500.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httputil.NotFound(w, "Not found", err)
	case errors.Is(err, bracket.ErrDuplicateEntry),
		errors.Is(err, bracket.ErrAlreadySeeded):
		httputil.Conflict(w, err.Error(), err)
	case errors.Is(err, bracket.ErrInvalidInput),
		errors.Is(err, bracket.ErrInvalidSize),
		errors.Is(err, bracket.ErrInvalidStatus),
		errors.Is(err, bracket.ErrInvalidSeeds),
		errors.Is(err, bracket.ErrWrongTeamCount),
		errors.Is(err, bracket.ErrTeamsLocked),
		errors.Is(err, bracket.ErrNotSeeded),
		errors.Is(err, bracket.ErrInvalidWinner),
		errors.Is(err, bracket.ErrNotOpen),
		errors.Is(err, bracket.ErrIncompletePicks),
		errors.Is(err, bracket.ErrInvalidPick),
		errors.Is(err, bracket.ErrInsufficientBalance):
		httputil.BadRequest(w, err.Error(), err)
	default:
		httputil.InternalServerError(w, fallback, err)
	}
}

package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/cwinters/go-spotify-muse/internal/db"
	"github.com/cwinters/go-spotify-muse/internal/gemini"
	"github.com/cwinters/go-spotify-muse/internal/history"
	"github.com/cwinters/go-spotify-muse/internal/prompt"
	"github.com/cwinters/go-spotify-muse/internal/recommend"
	"github.com/cwinters/go-spotify-muse/internal/spotify"
)

// maxBodyBytes bounds API request bodies.
const maxBodyBytes = 16 << 10

// Recommender is the recommendation surface the handlers call. Implemented
// by recommend.Service; tests use a fake.
type Recommender interface {
	Recommend(ctx context.Context, userID string, catalog recommend.Catalog, opts recommend.Options) (*recommend.Result, error)
	Lightning(ctx context.Context, userID string, catalog recommend.Catalog, opts recommend.Options) (*recommend.Result, error)
	Playlist(ctx context.Context, userID string, catalog recommend.Catalog, name string, size int, opts recommend.Options) (*recommend.PlaylistResult, error)
	Analyze(ctx context.Context, userID string, catalog recommend.Catalog) (string, error)
	FeedbackInsights(ctx context.Context, userID string) (*recommend.Insights, error)
	History(ctx context.Context, userID string, window time.Duration) ([]history.Record, error)
	MarkPlayed(ctx context.Context, userID, recordID string) error
	ClearCache(ctx context.Context, userID string) error
}

// UserStore persists users on login. Implemented by the db user repository.
type UserStore interface {
	Upsert(ctx context.Context, user *db.User) error
}

// FeedbackSink accepts submitted feedback. Implemented by the db feedback
// repository.
type FeedbackSink interface {
	Create(ctx context.Context, fb *db.Feedback) error
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth        *spotifyauth.Authenticator
	sessions    SessionManager
	templates   *Templates
	recommender Recommender
	users       UserStore
	feedback    FeedbackSink
}

// NewHandlers creates a new Handlers instance. users and feedback may be nil
// when running without a database; the features degrade accordingly.
func NewHandlers(auth *spotifyauth.Authenticator, sessions SessionManager, templates *Templates, recommender Recommender, users UserStore, feedback FeedbackSink) *Handlers {
	return &Handlers{
		auth:        auth,
		sessions:    sessions,
		templates:   templates,
		recommender: recommender,
		users:       users,
		feedback:    feedback,
	}
}

// catalog builds a per-request Spotify client from the session token. The
// raw api client is returned alongside so callers can read back a token the
// oauth2 transport refreshed during the request.
func (h *Handlers) catalog(ctx context.Context, sess *Session) (recommend.Catalog, *spotifyapi.Client) {
	api := spotifyapi.New(h.auth.Client(ctx, sess.Token), spotifyapi.WithRetry(true))
	return spotify.New(api), api
}

// saveRefreshedToken persists the token when the oauth2 transport refreshed
// it mid-request. Without this, DB-backed sessions keep the expired access
// token and refresh again on every request.
func (h *Handlers) saveRefreshedToken(ctx context.Context, sess *Session, api *spotifyapi.Client) {
	token, err := api.Token()
	if err != nil || token.AccessToken == sess.Token.AccessToken {
		return
	}
	h.sessions.UpdateToken(ctx, sess.ID, token)
}

// ============================================================================
// Pages
// ============================================================================

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)

	data := HomePageData{
		PageData: PageData{
			Title:       "Spotify Muse",
			CurrentPath: r.URL.Path,
		},
		Authenticated: session != nil,
	}

	if session != nil {
		data.User = &UserData{
			ID:   session.UserID,
			Name: session.UserName,
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "home", data); err != nil {
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// Dashboard shows the user's recent recommendations (GET /dashboard).
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	records, err := h.recommender.History(r.Context(), session.UserID, 7*24*time.Hour)
	if err != nil {
		log.Printf("loading dashboard history for %s: %v", session.UserID, err)
	}

	data := DashboardPageData{
		PageData: PageData{
			Title:       "Dashboard",
			User:        &UserData{ID: session.UserID, Name: session.UserName},
			CurrentPath: r.URL.Path,
		},
		Adjustment: session.Adjustment,
		Recent:     toRecommendationData(records),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "dashboard", data); err != nil {
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// ============================================================================
// Auth
// ============================================================================

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	url := h.auth.AuthURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	token, err := h.auth.Token(r.Context(), state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	client := spotifyapi.New(h.auth.Client(r.Context(), token))
	user, err := client.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	if h.users != nil {
		dbUser := &db.User{
			ID:          string(user.ID),
			DisplayName: user.DisplayName,
			Email:       user.Email,
		}
		if err := h.users.Upsert(r.Context(), dbUser); err != nil {
			log.Printf("upserting user %s: %v", user.ID, err)
		}
	}

	session, err := h.sessions.Create(r.Context(), token, string(user.ID), user.DisplayName)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	h.sessions.SetCookie(w, session)
	http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// ============================================================================
// API
// ============================================================================

// APIRecommend runs the standard recommendation flow (POST /api/recommend).
func (h *Handlers) APIRecommend(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	catalog, api := h.catalog(r.Context(), session)
	defer h.saveRefreshedToken(r.Context(), session, api)

	result, err := h.recommender.Recommend(r.Context(), session.UserID, catalog, recommend.Options{
		Adjustment: session.Adjustment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// APILightning runs the fast recommendation flow (POST /api/lightning).
func (h *Handlers) APILightning(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	catalog, api := h.catalog(r.Context(), session)
	defer h.saveRefreshedToken(r.Context(), session, api)

	result, err := h.recommender.Lightning(r.Context(), session.UserID, catalog, recommend.Options{
		Adjustment: session.Adjustment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// APIPlaylist builds an AI playlist (POST /api/playlist).
func (h *Handlers) APIPlaylist(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	var body struct {
		Name string `json:"name"`
		Size int    `json:"size"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	catalog, api := h.catalog(r.Context(), session)
	defer h.saveRefreshedToken(r.Context(), session, api)

	result, err := h.recommender.Playlist(r.Context(), session.UserID, catalog, body.Name, body.Size, recommend.Options{
		Adjustment: session.Adjustment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// APIAnalysis returns the cached-or-fresh taste analysis (GET /api/analysis).
func (h *Handlers) APIAnalysis(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	catalog, api := h.catalog(r.Context(), session)
	defer h.saveRefreshedToken(r.Context(), session, api)

	text, err := h.recommender.Analyze(r.Context(), session.UserID, catalog)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"analysis": text})
}

// APIFeedback records user feedback on a recommendation (POST /api/feedback).
func (h *Handlers) APIFeedback(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}
	if h.feedback == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("feedback requires a database"))
		return
	}

	var body struct {
		RecommendationID string `json:"recommendation_id"`
		TrackName        string `json:"track_name"`
		ArtistName       string `json:"artist_name"`
		Rating           int    `json:"rating"`
		Comment          string `json:"comment"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if body.Rating < 1 || body.Rating > 5 {
		writeJSON(w, http.StatusBadRequest, errorBody("rating must be between 1 and 5"))
		return
	}

	fb := &db.Feedback{
		ID:         uuid.New(),
		UserID:     session.UserID,
		TrackName:  body.TrackName,
		ArtistName: body.ArtistName,
		Rating:     body.Rating,
		Comment:    body.Comment,
	}
	if body.RecommendationID != "" {
		recID, err := uuid.Parse(body.RecommendationID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid recommendation_id"))
			return
		}
		fb.RecommendationID = &recID
	}

	if err := h.feedback.Create(r.Context(), fb); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": fb.ID.String()})
}

// APIFeedbackInsights summarizes feedback history (GET /api/feedback/insights).
func (h *Handlers) APIFeedbackInsights(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	insights, err := h.recommender.FeedbackInsights(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

// APISetAdjustment stores the session steering instruction (POST /api/adjustment).
func (h *Handlers) APISetAdjustment(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	var body struct {
		Adjustment string `json:"adjustment"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Adjustment == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("adjustment required"))
		return
	}

	h.sessions.SetAdjustment(r.Context(), session.ID, body.Adjustment)
	writeJSON(w, http.StatusOK, map[string]string{"adjustment": body.Adjustment})
}

// APIClearAdjustment removes the session steering instruction (DELETE /api/adjustment).
func (h *Handlers) APIClearAdjustment(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	h.sessions.SetAdjustment(r.Context(), session.ID, "")
	w.WriteHeader(http.StatusNoContent)
}

// APIMarkPlayed flags a recommendation as listened to
// (POST /api/recommendations/{id}/played).
func (h *Handlers) APIMarkPlayed(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid recommendation ID"))
		return
	}

	if err := h.recommender.MarkPlayed(r.Context(), session.UserID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// APIClearCache drops all cached data for the user (DELETE /api/cache).
func (h *Handlers) APIClearCache(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	if err := h.recommender.ClearCache(r.Context(), session.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Helpers
// ============================================================================

// requireSession returns the request's session, writing a 401 and returning
// nil when there is none.
func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) *Session {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("not authenticated"))
		return nil
	}
	return session
}

// writeError maps domain errors onto status codes. Auth expiry asks the
// client to restart OAuth; transient LLM failures say try again; an LLM
// answer that could not be resolved to a real track is a bad gateway.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, spotify.ErrAuthExpired):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":  "spotify authorization expired",
			"action": "reauth",
		})
	case errors.Is(err, gemini.ErrRateLimited), errors.Is(err, gemini.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("the recommendation engine is busy, try again shortly"))
	case errors.Is(err, prompt.ErrUnparseable), errors.Is(err, spotify.ErrTrackNotFound):
		writeJSON(w, http.StatusBadGateway, errorBody("could not produce a usable recommendation, try again"))
	case errors.Is(err, db.ErrNotFound), errors.Is(err, history.ErrRecordNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(v)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

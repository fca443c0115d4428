package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/oakhollow/hearth/internal/auth"
	"github.com/oakhollow/hearth/internal/bucks"
	"github.com/oakhollow/hearth/internal/calendar"
	"github.com/oakhollow/hearth/internal/catalog"
	"github.com/oakhollow/hearth/internal/chore"
	"github.com/oakhollow/hearth/internal/handler"
	"github.com/oakhollow/hearth/internal/middleware"
	"github.com/oakhollow/hearth/internal/push"
	"github.com/oakhollow/hearth/internal/reward"
	"github.com/oakhollow/hearth/internal/storage"
	"github.com/oakhollow/hearth/internal/store"
	ws "github.com/oakhollow/hearth/internal/websocket"
)

// Config holds everything the server needs beyond the open database.
type Config struct {
	TokenSecret string
	Timezone    *time.Location
	S3          storage.S3Config
	Push        push.Config
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	verifier    *auth.Verifier
	rateLimiter *middleware.RateLimiter

	calendarSvc *calendar.Service
	choreSvc    *chore.Service
	rewardSvc   *reward.Service
	bucksSvc    *bucks.Service
	memberStore *store.FamilyMemberStore
	pushStore   *store.PushStore
	notifier    *push.Notifier

	eventH   *handler.EventHandler
	choreH   *handler.ChoreHandler
	rewardH  *handler.RewardHandler
	bucksH   *handler.BucksHandler
	memberH  *handler.MemberHandler
	catalogH *handler.CatalogHandler
	storyH   *handler.StoryHandler
	pushH    *handler.PushHandler
	photoH   *handler.PhotoHandler

	logger *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	memberStore := store.NewFamilyMemberStore(db)
	eventStore := store.NewEventStore(db)
	choreStore := store.NewChoreStore(db)
	rewardStore := store.NewRewardStore(db)
	bucksStore := store.NewBucksStore(db)
	storyStore := store.NewStoryStore(db)
	pushStore := store.NewPushStore(db)

	feed := calendar.NewFeed(logger.With("component", "feed"))
	calendarSvc := calendar.NewService(eventStore, feed, logger.With("component", "calendar"))
	bucksSvc := bucks.NewService(bucksStore, logger.With("component", "bucks"))
	choreSvc := chore.NewService(choreStore, bucksSvc, cfg.Timezone, logger.With("component", "chore"))
	rewardSvc := reward.NewService(rewardStore, bucksSvc, calendarSvc, storyStore, logger.With("component", "reward"))
	importer := catalog.NewImporter(choreSvc, rewardSvc, logger.With("component", "catalog"))

	uploader := storage.NewUploader(cfg.S3)

	var notifier *push.Notifier
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, logger)
		rewardSvc.SetNotifier(notifier)
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:          db,
		hub:         hub,
		verifier:    auth.NewVerifier(cfg.TokenSecret),
		rateLimiter: middleware.NewRateLimiter(),
		calendarSvc: calendarSvc,
		choreSvc:    choreSvc,
		rewardSvc:   rewardSvc,
		bucksSvc:    bucksSvc,
		memberStore: memberStore,
		pushStore:   pushStore,
		notifier:    notifier,
		eventH:      handler.NewEventHandler(calendarSvc, hub, logger.With("component", "event_handler")),
		choreH:      handler.NewChoreHandler(choreSvc, hub, logger.With("component", "chore_handler")),
		rewardH:     handler.NewRewardHandler(rewardSvc, hub, logger.With("component", "reward_handler")),
		bucksH:      handler.NewBucksHandler(bucksSvc, memberStore, hub, logger.With("component", "bucks_handler")),
		memberH:     handler.NewMemberHandler(memberStore, hub, logger.With("component", "member_handler")),
		catalogH:    handler.NewCatalogHandler(importer, hub, logger.With("component", "catalog_handler")),
		storyH:      handler.NewStoryHandler(storyStore, logger.With("component", "story_handler")),
		pushH:       pushH,
		photoH:      handler.NewPhotoHandler(uploader, logger.With("component", "photo_handler")),
		logger:      logger,
	}
}

// ChoreService exposes the chore service for background generation loops.
func (s *Server) ChoreService() *chore.Service {
	return s.choreSvc
}

// MemberStore exposes the member store for background loops that need the
// family roster.
func (s *Server) MemberStore() *store.FamilyMemberStore {
	return s.memberStore
}

// Notifier returns the push notifier, or nil when VAPID keys are not
// configured.
func (s *Server) Notifier() *push.Notifier {
	return s.notifier
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.verifier)
	outerMux.Handle("/", authMiddleware(s.rateLimited(protectedMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc, 300, time.Minute)(next)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Family members
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.Handle("POST /api/members", middleware.RequireParent(http.HandlerFunc(s.memberH.Create)))
	mux.Handle("PUT /api/members/{id}", middleware.RequireParent(http.HandlerFunc(s.memberH.Update)))
	mux.Handle("DELETE /api/members/{id}", middleware.RequireParent(http.HandlerFunc(s.memberH.Delete)))
	mux.Handle("POST /api/members/{id}/pin", middleware.RequireParent(http.HandlerFunc(s.memberH.SetPIN)))
	mux.Handle("DELETE /api/members/{id}/pin", middleware.RequireParent(http.HandlerFunc(s.memberH.ClearPIN)))
	mux.HandleFunc("POST /api/members/{id}/pin/verify", s.memberH.VerifyPIN)

	// Calendar events
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/search", s.eventH.Search)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)

	// Chore templates and instances
	mux.Handle("POST /api/chores", middleware.RequireParent(http.HandlerFunc(s.choreH.CreateTemplate)))
	mux.HandleFunc("GET /api/chores", s.choreH.ListTemplates)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.GetTemplate)
	mux.Handle("PUT /api/chores/{id}", middleware.RequireParent(http.HandlerFunc(s.choreH.UpdateTemplate)))
	mux.Handle("DELETE /api/chores/{id}", middleware.RequireParent(http.HandlerFunc(s.choreH.ArchiveTemplate)))
	mux.Handle("POST /api/chores/{id}/activate", middleware.RequireParent(http.HandlerFunc(s.choreH.ActivateTemplate)))
	mux.Handle("POST /api/chores/generate", middleware.RequireParent(http.HandlerFunc(s.choreH.Generate)))
	mux.HandleFunc("GET /api/chores/day", s.choreH.ListDay)
	mux.HandleFunc("POST /api/chore-instances/{id}/complete", s.choreH.Complete)
	mux.Handle("POST /api/chore-instances/{id}/adjust", middleware.RequireParent(http.HandlerFunc(s.choreH.AdjustAward)))
	mux.Handle("POST /api/chore-instances/{id}/reject", middleware.RequireParent(http.HandlerFunc(s.choreH.Reject)))

	// Reward templates and instances
	mux.Handle("POST /api/rewards", middleware.RequireParent(http.HandlerFunc(s.rewardH.CreateTemplate)))
	mux.HandleFunc("GET /api/rewards", s.rewardH.ListTemplates)
	mux.HandleFunc("GET /api/rewards/{id}", s.rewardH.GetTemplate)
	mux.Handle("PUT /api/rewards/{id}", middleware.RequireParent(http.HandlerFunc(s.rewardH.UpdateTemplate)))
	mux.Handle("DELETE /api/rewards/{id}", middleware.RequireParent(http.HandlerFunc(s.rewardH.DeactivateTemplate)))
	mux.HandleFunc("POST /api/rewards/{id}/request", s.rewardH.Request)
	mux.HandleFunc("GET /api/reward-instances", s.rewardH.ListInstances)
	mux.HandleFunc("GET /api/reward-instances/{id}", s.rewardH.GetInstance)
	mux.Handle("POST /api/reward-instances/{id}/approve", middleware.RequireParent(http.HandlerFunc(s.rewardH.Approve)))
	mux.Handle("POST /api/reward-instances/{id}/reject", middleware.RequireParent(http.HandlerFunc(s.rewardH.Reject)))
	mux.Handle("POST /api/reward-instances/{id}/fulfill", middleware.RequireParent(http.HandlerFunc(s.rewardH.Fulfill)))
	mux.HandleFunc("POST /api/reward-instances/{id}/memories", s.rewardH.AddMemories)

	// Bucks
	mux.HandleFunc("GET /api/bucks/{id}/balance", s.bucksH.Balance)
	mux.HandleFunc("GET /api/bucks/{id}/summary", s.bucksH.Summary)
	mux.HandleFunc("GET /api/bucks/history", s.bucksH.History)
	mux.Handle("POST /api/bucks/adjust", middleware.RequireParent(http.HandlerFunc(s.bucksH.Adjust)))

	// Catalog import
	mux.Handle("POST /api/catalog/import", middleware.RequireParent(http.HandlerFunc(s.catalogH.Import)))

	// Family story feed
	mux.HandleFunc("GET /api/story", s.storyH.List)

	// Photos
	mux.HandleFunc("POST /api/photos", s.photoH.Upload)
	mux.HandleFunc("GET /api/photos", s.photoH.Get)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}

	// Real-time sync
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"poojaconstructions/api/internal/admins"
	"poojaconstructions/api/internal/auth"
	"poojaconstructions/api/internal/config"
	"poojaconstructions/api/internal/content"
	"poojaconstructions/api/internal/docstore"
	"poojaconstructions/api/internal/email"
	"poojaconstructions/api/internal/rbac"
	"poojaconstructions/api/internal/search"
	"poojaconstructions/api/internal/session"
	"poojaconstructions/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Name         string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// Collections bundles the typed accessors for every content document. It also
// feeds the search fallback scanner and bootstrap reindexing.
type Collections struct {
	projects   *docstore.Collection[content.Project]
	services   *docstore.Collection[content.Service]
	bitumen    *docstore.Collection[content.BitumenProduct]
	team       *docstore.Collection[content.TeamMember]
	activities *docstore.Collection[content.Activity]
}

func NewCollections(backend docstore.Backend, cache *docstore.Cache, ids config.DocumentIDs) *Collections {
	return &Collections{
		projects:   docstore.NewCollection[content.Project](backend, cache, ids.Projects, "projects"),
		services:   docstore.NewCollection[content.Service](backend, cache, ids.Services, "services"),
		bitumen:    docstore.NewCollection[content.BitumenProduct](backend, cache, ids.Bitumen, "bitumen"),
		team:       docstore.NewCollection[content.TeamMember](backend, cache, ids.Team, "team"),
		activities: docstore.NewCollection[content.Activity](backend, cache, ids.Activities, "activities"),
	}
}

func (c *Collections) Projects(ctx context.Context) ([]content.Project, error) {
	return c.projects.Get(ctx)
}

func (c *Collections) Services(ctx context.Context) ([]content.Service, error) {
	return c.services.Get(ctx)
}

func (c *Collections) Bitumen(ctx context.Context) ([]content.BitumenProduct, error) {
	return c.bitumen.Get(ctx)
}

func (c *Collections) Team(ctx context.Context) ([]content.TeamMember, error) {
	return c.team.Get(ctx)
}

func (c *Collections) Activities(ctx context.Context) ([]content.Activity, error) {
	return c.activities.Get(ctx)
}

// Uploader stores one file and returns its public URL.
type Uploader interface {
	Put(ctx context.Context, folder, filename, contentType string, r io.Reader, size int64) (string, error)
}

// Mailer forwards contact enquiries. nil or unconfigured disables the
// contact endpoint.
type Mailer interface {
	IsConfigured() bool
	SendContact(m email.ContactMessage) error
}

type Service struct {
	cfg      config.Config
	backend  docstore.Backend
	cols     *Collections
	admins   *admins.Service
	sessions session.Store
	search   *search.Service
	uploads  Uploader
	mailer   Mailer
}

func New(cfg config.Config, backend docstore.Backend, cols *Collections, adminService *admins.Service, sessions session.Store, searchService *search.Service, uploads Uploader, mailer Mailer) *Service {
	return &Service{
		cfg:      cfg,
		backend:  backend,
		cols:     cols,
		admins:   adminService,
		sessions: sessions,
		search:   searchService,
		uploads:  uploads,
		mailer:   mailer,
	}
}

// Bootstrap seeds the default admin accounts, warms the content collections
// (creating their backing documents when missing), and fills the search
// index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.cfg.SeedAdmins {
		if err := s.admins.Seed(ctx); err != nil {
			return fmt.Errorf("seed admins: %w", err)
		}
	}

	warm := []struct {
		key  string
		load func(context.Context) error
	}{
		{"projects", func(ctx context.Context) error { _, err := s.cols.Projects(ctx); return err }},
		{"services", func(ctx context.Context) error { _, err := s.cols.Services(ctx); return err }},
		{"bitumen", func(ctx context.Context) error { _, err := s.cols.Bitumen(ctx); return err }},
		{"team", func(ctx context.Context) error { _, err := s.cols.Team(ctx); return err }},
		{"activities", func(ctx context.Context) error { _, err := s.cols.Activities(ctx); return err }},
	}
	for _, w := range warm {
		if err := w.load(ctx); err != nil {
			log.Printf("bootstrap: warm %s: %v", w.key, err)
		}
	}

	if s.search != nil {
		s.search.ReindexAll(ctx)
	}
	return nil
}

// Ping checks the document store and the session store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return fmt.Errorf("docstore: %w", err)
	}
	if err := s.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	return nil
}

// Login verifies the credentials and opens a session. Unknown users and
// wrong passwords come back as the same error.
func (s *Service) Login(ctx context.Context, userID, password string) (Session, error) {
	admin, err := s.admins.Authenticate(ctx, userID, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, admin.UserID, admin.Name, string(admin.Role))
}

// Refresh rotates a refresh token. The account is re-read so role changes
// and deletions take effect at the next rotation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	data, err := s.sessions.LookupRefresh(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefresh(ctx, tokenHash); err != nil {
		return Session{}, err
	}

	admin, err := s.admins.Get(ctx, data.UserID)
	if err != nil {
		return Session{}, session.ErrNotFound
	}
	return s.issueSession(ctx, admin.UserID, admin.Name, string(admin.Role))
}

func (s *Service) issueSession(ctx context.Context, userID, name, role string) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		UserID: userID,
		Name:   name,
		Role:   role,
		JTI:    jti,
		Exp:    expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	data := session.TokenData{UserID: userID, Name: name, Role: role}
	if err := s.sessions.SaveRefresh(ctx, auth.HashToken(refresh), data, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       userID,
		Name:         name,
		Role:         role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    claims.UserID,
		Name:      claims.Name,
		Role:      claims.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string) error {
	if sess.JTI != "" {
		_ = s.sessions.RevokeAccess(ctx, sess.JTI, sess.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefresh(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Role(role), action)
}

// Content reads. Handlers degrade failures to empty arrays at the edge; the
// service keeps errors explicit.

func (s *Service) Projects(ctx context.Context) ([]content.Project, error) {
	return s.cols.Projects(ctx)
}

func (s *Service) Services(ctx context.Context) ([]content.Service, error) {
	return s.cols.Services(ctx)
}

func (s *Service) Bitumen(ctx context.Context) ([]content.BitumenProduct, error) {
	return s.cols.Bitumen(ctx)
}

func (s *Service) Team(ctx context.Context) ([]content.TeamMember, error) {
	return s.cols.Team(ctx)
}

func (s *Service) Activities(ctx context.Context) ([]content.Activity, error) {
	return s.cols.Activities(ctx)
}

// ReplaceProjects overwrites the whole collection. Every record must carry a
// known category.
func (s *Service) ReplaceProjects(ctx context.Context, items []content.Project) error {
	for _, p := range items {
		if !content.ValidCategory(p.Category) {
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				fmt.Sprintf("unknown project category %q", p.Category), map[string]any{"categories": content.Categories})
		}
	}
	prev, _ := s.cols.Projects(ctx)
	if err := s.cols.projects.Save(ctx, items); err != nil {
		return err
	}
	s.recordActivity(ctx, "Updated projects", "Multiple projects")
	if s.search != nil {
		s.search.SyncProjects(prev, items)
	}
	return nil
}

// CreateProject appends one record with the next free id.
func (s *Service) CreateProject(ctx context.Context, p content.Project) (content.Project, error) {
	if strings.TrimSpace(p.Title) == "" {
		return content.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if !content.ValidCategory(p.Category) {
		return content.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			fmt.Sprintf("unknown project category %q", p.Category), map[string]any{"categories": content.Categories})
	}

	items, err := s.cols.Projects(ctx)
	if err != nil {
		return content.Project{}, err
	}
	p.ID = content.NextID(items)
	next := append(items, p)
	if err := s.cols.projects.Save(ctx, next); err != nil {
		return content.Project{}, err
	}
	s.recordActivity(ctx, "Added project", p.Title)
	if s.search != nil {
		s.search.SyncProjects(items, next)
	}
	return p, nil
}

func (s *Service) ReplaceServices(ctx context.Context, items []content.Service) error {
	prev, _ := s.cols.Services(ctx)
	if err := s.cols.services.Save(ctx, items); err != nil {
		return err
	}
	s.recordActivity(ctx, "Updated services", "Multiple services")
	if s.search != nil {
		s.search.SyncServices(prev, items)
	}
	return nil
}

func (s *Service) CreateService(ctx context.Context, svc content.Service) (content.Service, error) {
	if strings.TrimSpace(svc.Title) == "" {
		return content.Service{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	items, err := s.cols.Services(ctx)
	if err != nil {
		return content.Service{}, err
	}
	svc.ID = content.NextID(items)
	next := append(items, svc)
	if err := s.cols.services.Save(ctx, next); err != nil {
		return content.Service{}, err
	}
	s.recordActivity(ctx, "Added service", svc.Title)
	if s.search != nil {
		s.search.SyncServices(items, next)
	}
	return svc, nil
}

func (s *Service) ReplaceBitumen(ctx context.Context, items []content.BitumenProduct) error {
	prev, _ := s.cols.Bitumen(ctx)
	if err := s.cols.bitumen.Save(ctx, items); err != nil {
		return err
	}
	s.recordActivity(ctx, "Updated bitumen", "Multiple bitumen")
	if s.search != nil {
		s.search.SyncBitumen(prev, items)
	}
	return nil
}

func (s *Service) CreateBitumen(ctx context.Context, b content.BitumenProduct) (content.BitumenProduct, error) {
	if strings.TrimSpace(b.Title) == "" {
		return content.BitumenProduct{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	items, err := s.cols.Bitumen(ctx)
	if err != nil {
		return content.BitumenProduct{}, err
	}
	b.ID = content.NextID(items)
	next := append(items, b)
	if err := s.cols.bitumen.Save(ctx, next); err != nil {
		return content.BitumenProduct{}, err
	}
	s.recordActivity(ctx, "Added bitumen product", b.Title)
	if s.search != nil {
		s.search.SyncBitumen(items, next)
	}
	return b, nil
}

func (s *Service) ReplaceTeam(ctx context.Context, items []content.TeamMember) error {
	prev, _ := s.cols.Team(ctx)
	if err := s.cols.team.Save(ctx, items); err != nil {
		return err
	}
	s.recordActivity(ctx, "Updated team", "Multiple team")
	if s.search != nil {
		s.search.SyncTeam(prev, items)
	}
	return nil
}

func (s *Service) CreateTeamMember(ctx context.Context, m content.TeamMember) (content.TeamMember, error) {
	if strings.TrimSpace(m.Name) == "" {
		return content.TeamMember{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	items, err := s.cols.Team(ctx)
	if err != nil {
		return content.TeamMember{}, err
	}
	m.ID = content.NextID(items)
	next := append(items, m)
	if err := s.cols.team.Save(ctx, next); err != nil {
		return content.TeamMember{}, err
	}
	s.recordActivity(ctx, "Added team member", m.Name)
	if s.search != nil {
		s.search.SyncTeam(items, next)
	}
	return m, nil
}

// RecordActivity prepends one dashboard log entry, dropping the oldest past
// the cap.
func (s *Service) RecordActivity(ctx context.Context, action, item string) error {
	if strings.TrimSpace(action) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "action is required", nil)
	}
	entries, err := s.cols.Activities(ctx)
	if err != nil {
		return err
	}
	updated := content.PrependActivity(entries, content.NewActivity(action, item))
	return s.cols.activities.Save(ctx, updated)
}

// recordActivity is the best-effort variant used as a side effect of content
// writes; failures only make the dashboard log incomplete.
func (s *Service) recordActivity(ctx context.Context, action, item string) {
	if err := s.RecordActivity(ctx, action, item); err != nil {
		log.Printf("activity: record %q: %v", action, err)
	}
}

// Admin management passthroughs.

func (s *Service) ListAdmins(ctx context.Context) ([]admins.Admin, error) {
	return s.admins.List(ctx)
}

func (s *Service) CreateAdmin(ctx context.Context, userID, name string, role rbac.Role, password string) (admins.Admin, error) {
	return s.admins.Create(ctx, userID, name, role, password)
}

func (s *Service) UpdateAdmin(ctx context.Context, userID string, in admins.UpdateInput) (admins.Admin, error) {
	return s.admins.Update(ctx, userID, in)
}

func (s *Service) DeleteAdmin(ctx context.Context, userID string) error {
	return s.admins.Delete(ctx, userID)
}

// Upload stores one admin-panel file and returns its public URL.
func (s *Service) Upload(ctx context.Context, folder, filename, contentType string, r io.Reader, size int64) (string, error) {
	if s.uploads == nil {
		return "", domainError(http.StatusServiceUnavailable, "UPLOADS_DISABLED", "Uploads are not configured", nil)
	}
	return s.uploads.Put(ctx, folder, filename, contentType, r, size)
}

// Contact forwards a visitor enquiry to the company inbox.
func (s *Service) Contact(ctx context.Context, m email.ContactMessage) error {
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Email) == "" || strings.TrimSpace(m.Message) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name, email and message are required", nil)
	}
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return domainError(http.StatusServiceUnavailable, "EMAIL_NOT_CONFIGURED", "Contact form is not available", nil)
	}
	if err := s.mailer.SendContact(m); err != nil {
		return fmt.Errorf("send contact mail: %w", err)
	}
	return nil
}

// Search runs a site search across the public collections.
func (s *Service) Search(ctx context.Context, text, filterType string, limit, offset int) (search.Response, error) {
	typ := search.ResultType(filterType)
	if filterType != "" && !search.ValidType(typ) {
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			fmt.Sprintf("unknown search type %q", filterType), nil)
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(ctx, search.Query{Text: text, FilterType: typ, Limit: limit, Offset: offset}), nil
}

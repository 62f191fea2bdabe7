// Package server implements the versionstore gRPC service
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/versionstore/internal/logger"
	"github.com/nainya/versionstore/internal/metrics"
	"github.com/nainya/versionstore/pkg/registry"
	"github.com/nainya/versionstore/pkg/versioning"
)

// Server implements VersionStoreServer over a registry and its store.
// Every call holds mu, so the store sees a single writer.
type Server struct {
	mu       sync.Mutex
	registry *registry.Registry
	store    *versioning.Store

	log     *logger.Logger
	metrics *metrics.Metrics

	startTime time.Time
	opCounts  map[string]int64
}

var _ VersionStoreServer = (*Server)(nil)

// NewServer creates a gRPC service instance. m may be nil.
func NewServer(reg *registry.Registry, log *logger.Logger, m *metrics.Metrics) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		registry:  reg,
		store:     reg.Store(),
		log:       log,
		metrics:   m,
		startTime: time.Now(),
		opCounts:  make(map[string]int64),
	}
}

// begin takes the store lock and counts the call; the caller must
// invoke the returned func to release it.
func (s *Server) begin(op string) func() {
	s.mu.Lock()
	s.opCounts[op]++
	return s.mu.Unlock
}

// observe runs one store operation with logging and metrics
func (s *Server) observe(op, docID string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	s.log.LogStoreOperation(op, docID, duration, err)
	if s.metrics != nil {
		s.metrics.RecordStoreOperation(op, err, duration)
		s.metrics.UpdateStoreStats(s.store.Stats())
	}
	return err
}

func (s *Server) document(req *structpb.Struct) (*registry.Document, error) {
	if err := requireFields(req, "document_id"); err != nil {
		return nil, err
	}
	doc, err := s.registry.Document(stringField(req, "document_id"))
	if err != nil {
		return nil, status.Error(codes.NotFound, err.Error())
	}
	return doc, nil
}

func (s *Server) user(req *structpb.Struct) (*registry.User, error) {
	if err := requireFields(req, "user_id"); err != nil {
		return nil, err
	}
	u, err := s.registry.User(stringField(req, "user_id"))
	if err != nil {
		return nil, status.Error(codes.NotFound, err.Error())
	}
	return u, nil
}

func (s *Server) documentAndUser(req *structpb.Struct) (*registry.Document, *registry.User, error) {
	doc, err := s.document(req)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.user(req)
	if err != nil {
		return nil, nil, err
	}
	return doc, u, nil
}

// outcomeReply reports a store result without turning domain failures
// into gRPC errors.
func outcomeReply(err error, extra map[string]interface{}) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"success": err == nil,
		"outcome": versioning.OutcomeOf(err).String(),
	}
	if err != nil {
		fields["message"] = err.Error()
	}
	for k, v := range extra {
		fields[k] = v
	}
	return reply(fields)
}

func recordValue(rec versioning.VersionRecord) map[string]interface{} {
	m := map[string]interface{}{
		"version":     rec.Version,
		"content":     rec.Content,
		"date":        formatTime(rec.Date),
		"description": rec.Description,
	}
	if rec.Author != nil {
		m["author_id"] = rec.Author.ID()
		m["author_name"] = rec.Author.DisplayName()
	}
	if rec.ParentBranch != "" {
		m["parent_branch"] = rec.ParentBranch
		m["parent_version"] = rec.ParentVersion
	}
	if rec.MergedFrom != "" {
		m["merged_from"] = rec.MergedFrom
		m["merged_version"] = rec.MergedVersion
	}
	if rec.ConflictResolution {
		m["conflict_resolution"] = true
	}
	return m
}

func (s *Server) documentValue(doc *registry.Document) map[string]interface{} {
	history := make([]interface{}, 0, len(doc.History()))
	for _, entry := range doc.History() {
		history = append(history, map[string]interface{}{
			"message":   entry.Message,
			"timestamp": formatTime(entry.Timestamp),
		})
	}

	active, _ := s.store.ActiveBranch(doc)
	return map[string]interface{}{
		"id":            doc.ID(),
		"title":         doc.Title(),
		"content":       doc.Content(),
		"version":       doc.Version(),
		"author_id":     doc.Author().ID(),
		"author_name":   doc.Author().DisplayName(),
		"created_at":    formatTime(doc.CreatedAt()),
		"modified_at":   formatTime(doc.ModifiedAt()),
		"active_branch": active,
		"locked":        s.store.IsDocumentLocked(doc),
		"history":       history,
	}
}

func stringsValue(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// ========== Registry Operations ==========

func (s *Server) RegisterUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("RegisterUser")()

	u, err := s.registry.RegisterUser(stringField(req, "name"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	return reply(map[string]interface{}{
		"user_id": u.ID(),
		"name":    u.DisplayName(),
	})
}

func (s *Server) CreateDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("CreateDocument")()

	if err := requireFields(req, "author_id"); err != nil {
		return nil, err
	}

	var doc *registry.Document
	err := s.observe("initialize", "", func() error {
		var err error
		doc, err = s.registry.CreateDocument(
			stringField(req, "title"),
			stringField(req, "content"),
			stringField(req, "author_id"),
		)
		return err
	})
	switch {
	case errors.Is(err, registry.ErrUserNotFound):
		return nil, status.Error(codes.NotFound, err.Error())
	case err != nil:
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	return reply(s.documentValue(doc))
}

func (s *Server) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("GetDocument")()

	doc, err := s.document(req)
	if err != nil {
		return nil, err
	}
	return reply(s.documentValue(doc))
}

func (s *Server) EditDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("EditDocument")()

	doc, u, err := s.documentAndUser(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.EditContent(doc.ID(), stringField(req, "content"), u.ID()); err != nil {
		return nil, status.Error(codes.NotFound, err.Error())
	}
	return reply(s.documentValue(doc))
}

// ========== Branch Operations ==========

func (s *Server) CreateBranch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("CreateBranch")()

	doc, u, err := s.documentAndUser(req)
	if err != nil {
		return nil, err
	}
	if err := requireFields(req, "branch"); err != nil {
		return nil, err
	}

	err = s.observe("create_branch", doc.ID(), func() error {
		return s.store.CreateBranch(doc, stringField(req, "branch"), u)
	})
	return outcomeReply(err, nil)
}

func (s *Server) SwitchBranch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("SwitchBranch")()

	doc, u, err := s.documentAndUser(req)
	if err != nil {
		return nil, err
	}
	if err := requireFields(req, "branch"); err != nil {
		return nil, err
	}

	err = s.observe("switch_branch", doc.ID(), func() error {
		return s.store.SwitchBranch(doc, stringField(req, "branch"), u)
	})
	return outcomeReply(err, map[string]interface{}{
		"content": doc.Content(),
		"version": doc.Version(),
	})
}

func (s *Server) Branches(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("Branches")()

	doc, err := s.document(req)
	if err != nil {
		return nil, err
	}

	active, _ := s.store.ActiveBranch(doc)
	return reply(map[string]interface{}{
		"branches": stringsValue(s.store.DocumentBranches(doc)),
		"active":   active,
	})
}

// ========== Version Operations ==========

func (s *Server) Commit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("Commit")()

	doc, u, err := s.documentAndUser(req)
	if err != nil {
		return nil, err
	}

	var version int
	err = s.observe("commit", doc.ID(), func() error {
		var err error
		version, err = s.store.CommitChanges(doc, u,
			stringField(req, "description"),
			versioning.LockToken(stringField(req, "lock_token")))
		return err
	})
	return outcomeReply(err, map[string]interface{}{"version": version})
}

func (s *Server) Merge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("Merge")()

	doc, u, err := s.documentAndUser(req)
	if err != nil {
		return nil, err
	}
	if err := requireFields(req, "source", "target"); err != nil {
		return nil, err
	}

	target := stringField(req, "target")
	before := len(s.store.VersionHistory(doc, target))

	var message string
	err = s.observe("merge", doc.ID(), func() error {
		var err error
		message, err = s.store.MergeBranches(doc,
			stringField(req, "source"), target, u,
			versioning.LockToken(stringField(req, "lock_token")))
		return err
	})

	out, rerr := outcomeReply(err, map[string]interface{}{
		"merged": len(s.store.VersionHistory(doc, target)) > before,
	})
	if rerr != nil {
		return nil, rerr
	}
	out.Fields["message"] = structpb.NewStringValue(message)
	return out, nil
}

func (s *Server) ResolveConflict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("ResolveConflict")()

	doc, u, err := s.documentAndUser(req)
	if err != nil {
		return nil, err
	}

	var version int
	err = s.observe("resolve_conflict", doc.ID(), func() error {
		var err error
		version, err = s.store.ResolveConflict(doc,
			stringField(req, "content"), u,
			stringField(req, "description"),
			versioning.LockToken(stringField(req, "lock_token")))
		return err
	})
	return outcomeReply(err, map[string]interface{}{"version": version})
}

func (s *Server) History(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("History")()

	doc, err := s.document(req)
	if err != nil {
		return nil, err
	}

	branch := stringField(req, "branch")
	if branch == "" {
		branch, _ = s.store.ActiveBranch(doc)
	}

	records := s.store.VersionHistory(doc, branch)
	versions := make([]interface{}, 0, len(records))
	for _, rec := range records {
		versions = append(versions, recordValue(rec))
	}

	return reply(map[string]interface{}{
		"branch":   branch,
		"versions": versions,
	})
}

func (s *Server) Checkout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("Checkout")()

	doc, u, err := s.documentAndUser(req)
	if err != nil {
		return nil, err
	}

	err = s.observe("checkout", doc.ID(), func() error {
		return s.store.CheckoutVersion(doc, intField(req, "version"), u)
	})
	return outcomeReply(err, map[string]interface{}{
		"content": doc.Content(),
		"version": doc.Version(),
	})
}

// ========== Lock Operations ==========

func (s *Server) Lock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("Lock")()

	doc, u, err := s.documentAndUser(req)
	if err != nil {
		return nil, err
	}

	var token versioning.LockToken
	err = s.observe("lock", doc.ID(), func() error {
		var err error
		token, err = s.store.LockDocument(doc, u)
		return err
	})
	return outcomeReply(err, map[string]interface{}{"lock_token": string(token)})
}

func (s *Server) Unlock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("Unlock")()

	doc, u, err := s.documentAndUser(req)
	if err != nil {
		return nil, err
	}

	err = s.observe("unlock", doc.ID(), func() error {
		return s.store.UnlockDocument(doc, u)
	})
	return outcomeReply(err, nil)
}

func (s *Server) LockStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("LockStatus")()

	doc, err := s.document(req)
	if err != nil {
		return nil, err
	}

	holder, locked := s.store.LockHolder(doc)
	return reply(map[string]interface{}{
		"locked":    locked,
		"holder_id": holder,
	})
}

// ========== Health & Stats ==========

func (s *Server) Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) Stats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.begin("Stats")()

	ops := make(map[string]interface{}, len(s.opCounts))
	for op, n := range s.opCounts {
		ops[op] = n
	}

	st := s.store.Stats()
	return reply(map[string]interface{}{
		"documents":  st.Documents,
		"branches":   st.Branches,
		"versions":   st.Versions,
		"locks":      st.Locks,
		"operations": ops,
	})
}

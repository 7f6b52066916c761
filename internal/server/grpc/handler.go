package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/cryptox"
	"github.com/kaplunov-alex/PWMgr/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Trailer keys set on failed logins.
const (
	RemainingAttemptsTrailer = "remaining-attempts"
	RetryAfterTrailer        = "retry-after-seconds"
)

var errBadRequest = errors.New("malformed request")

type passwordRequest struct {
	Password string `json:"password"`
}

type idRequest struct {
	ID int64 `json:"id"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type updateRequest struct {
	ID int64 `json:"id"`
	services.EntryInput
}

type generateRequest struct {
	Length    *int  `json:"length"`
	Uppercase *bool `json:"uppercase"`
	Lowercase *bool `json:"lowercase"`
	Numbers   *bool `json:"numbers"`
	Special   *bool `json:"special"`
}

func (r generateRequest) options() (int, cryptox.PasswordOptions) {
	length := services.DefaultGeneratedLength
	if r.Length != nil {
		length = *r.Length
	}
	flag := func(b *bool) bool { return b == nil || *b }
	return length, cryptox.PasswordOptions{
		Upper:   flag(r.Uppercase),
		Lower:   flag(r.Lowercase),
		Digits:  flag(r.Numbers),
		Symbols: flag(r.Special),
	}
}

func decode(in *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func badRequest(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

// sessionKeyFor returns a copy of the caller's session key, which the
// handler wipes when it returns. The interceptor
// has already refused unauthenticated callers, so a miss means the session
// ended mid-request.
func (s *GRPCServer) sessionKeyFor(ctx context.Context) ([]byte, error) {
	sess, ok := sessionFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "not authenticated")
	}
	key, ok := s.auth.SessionKey(sess)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "not authenticated")
	}
	return key, nil
}

func (s *GRPCServer) Status(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	required, err := s.auth.IsSetupRequired(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	authenticated := false
	if sess, ok := sessionFromContext(ctx); ok {
		authenticated = s.auth.IsAuthenticated(sess)
	}

	return encode(map[string]any{
		"setup_required": required,
		"authenticated":  authenticated,
	})
}

func (s *GRPCServer) Setup(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req passwordRequest
	if err := decode(in, &req); err != nil {
		return nil, badRequest(err)
	}

	if err := s.auth.SetupMasterPassword(ctx, req.Password); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return encode(map[string]any{"message": "master password configured"})
}

// Login authenticates into a fresh session and returns its token. A prior
// session presented by the caller is discarded on success.
func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req passwordRequest
	if err := decode(in, &req); err != nil {
		return nil, badRequest(err)
	}

	client := clientID(ctx)
	sess := s.sessions.Create()

	ok, err := s.auth.Authenticate(ctx, req.Password, client, sess)
	if err != nil {
		sess.Invalidate()
		var rl *common.RateLimitedError
		if errors.As(err, &rl) {
			_ = grpc.SetTrailer(ctx, metadata.Pairs(RetryAfterTrailer, strconv.Itoa(int(rl.RetryAfter.Seconds()))))
		}
		return nil, s.toStatus(ctx, err)
	}

	if !ok {
		sess.Invalidate()
		remaining := s.auth.RemainingAttempts(client)
		_ = grpc.SetTrailer(ctx, metadata.Pairs(RemainingAttemptsTrailer, strconv.Itoa(remaining)))
		return nil, status.Errorf(codes.Unauthenticated, "invalid password, %d attempts remaining", remaining)
	}

	if prev, found := sessionFromContext(ctx); found {
		s.auth.Logout(prev)
	}

	token, err := s.tokens.Issue(sess.ID())
	if err != nil {
		sess.Invalidate()
		return nil, s.toStatus(ctx, err)
	}

	return encode(map[string]any{
		"authenticated": true,
		"session_token": token,
	})
}

func (s *GRPCServer) Logout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if sess, ok := sessionFromContext(ctx); ok {
		s.auth.Logout(sess)
	}
	return encode(map[string]any{"message": "logged out"})
}

func (s *GRPCServer) GeneratePassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req generateRequest
	if err := decode(in, &req); err != nil {
		return nil, badRequest(err)
	}

	length, opts := req.options()
	generated, err := s.entries.GeneratePassword(length, opts)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return encode(generated)
}

func (s *GRPCServer) entryList(ctx context.Context, list []*services.EntryView, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if list == nil {
		list = []*services.EntryView{}
	}
	return encode(map[string]any{"entries": list})
}

func (s *GRPCServer) entry(ctx context.Context, v *services.EntryView, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encode(map[string]any{"entry": v})
}

func (s *GRPCServer) ListEntries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	key, err := s.sessionKeyFor(ctx)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	list, err := s.entries.List(ctx, key)
	return s.entryList(ctx, list, err)
}

func (s *GRPCServer) SearchEntries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	key, err := s.sessionKeyFor(ctx)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	var req searchRequest
	if err := decode(in, &req); err != nil {
		return nil, badRequest(err)
	}

	list, err := s.entries.Search(ctx, key, req.Query)
	return s.entryList(ctx, list, err)
}

func (s *GRPCServer) GetEntry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	key, err := s.sessionKeyFor(ctx)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	var req idRequest
	if err := decode(in, &req); err != nil {
		return nil, badRequest(err)
	}

	v, err := s.entries.Get(ctx, key, req.ID)
	return s.entry(ctx, v, err)
}

func (s *GRPCServer) CreateEntry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	key, err := s.sessionKeyFor(ctx)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	var req services.EntryInput
	if err := decode(in, &req); err != nil {
		return nil, badRequest(err)
	}

	v, err := s.entries.Create(ctx, key, req)
	return s.entry(ctx, v, err)
}

func (s *GRPCServer) UpdateEntry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	key, err := s.sessionKeyFor(ctx)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	var req updateRequest
	if err := decode(in, &req); err != nil {
		return nil, badRequest(err)
	}

	v, err := s.entries.Update(ctx, key, req.ID, req.EntryInput)
	return s.entry(ctx, v, err)
}

func (s *GRPCServer) DeleteEntry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return nil, badRequest(err)
	}

	if err := s.entries.Delete(ctx, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return encode(map[string]any{"message": "entry deleted"})
}

func (s *GRPCServer) Backup(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.backup == nil {
		return nil, status.Error(codes.Unavailable, "backup storage not configured")
	}

	res, err := s.backup.Run(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return encode(res)
}

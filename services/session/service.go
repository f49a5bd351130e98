package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/randtoken"
)

// Session is the anonymous per-device identity. Tokens never expire or
// regenerate; a device keeps its token until its storage is cleared.
type Session struct {
	Token     string
	CreatedAt time.Time
}

type service struct {
	sessionStore mystore.Store[Session]
	nower        mytime.Nower
	logger       mylog.Logger

	// resolved sessions are cached so repeat lookups skip the store
	mutex sync.Mutex
	cache map[string]Session
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(sessionStore mystore.Store[Session], nower mytime.Nower, logger mylog.Logger) *service {
	return &service{
		sessionStore: sessionStore,
		nower:        nower,
		logger:       logger,
		cache:        map[string]Session{},
	}
}

// resolveToken returns the existing session when the token is known,
// otherwise it issues a fresh 16-character token and persists it.
func (s *service) resolveToken(c context.Context, existingToken string) (Session, error) {
	if existingToken != "" {
		if session, found := s.fromCache(existingToken); found {
			return session, nil
		}

		session, found, err := s.sessionStore.Get(c, existingToken)
		if err != nil {
			return Session{}, myerrors.NewInternalError(fmt.Errorf("error fetching session %s: %s", existingToken, err))
		}
		if found {
			s.toCache(session)
			return session, nil
		}
	}

	token, err := randtoken.New(randtoken.SessionTokenLength)
	if err != nil {
		return Session{}, myerrors.NewInternalError(fmt.Errorf("error generating session token: %s", err))
	}

	session := Session{
		Token:     token,
		CreatedAt: s.nower.Now(),
	}
	err = s.sessionStore.Put(c, token, session)
	if err != nil {
		return Session{}, myerrors.NewInternalError(fmt.Errorf("error storing session %s: %s", token, err))
	}
	s.toCache(session)

	s.logger.Log(c, token, mylog.SeverityInfo, "Issued new session token %s", token)

	return session, nil
}

func (s *service) fromCache(token string) (Session, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	session, found := s.cache[token]
	return session, found
}

func (s *service) toCache(session Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cache[session.Token] = session
}

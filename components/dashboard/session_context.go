package dashboard

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches a session store to the context.
func ContextWithSession(ctx context.Context, store *SessionStore) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey{}, store)
}

// SessionFromContext extracts the session store, if present.
func SessionFromContext(ctx context.Context) (*SessionStore, bool) {
	if ctx == nil {
		return nil, false
	}
	store, ok := ctx.Value(sessionContextKey{}).(*SessionStore)
	return store, ok && store != nil
}

// MustSession returns the session store or panics with ErrNoSessionProvider.
func MustSession(ctx context.Context) *SessionStore {
	store, ok := SessionFromContext(ctx)
	if !ok {
		panic(ErrNoSessionProvider)
	}
	return store
}

package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Activities  *ActivityHandler
	Maintainers *MaintainerHandler
	// Session guards every route except POST /login.
	Session func(http.Handler) http.Handler
	// Middleware wraps the whole router, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	guard := func(fn http.HandlerFunc) http.Handler {
		if cfg.Session == nil {
			return fn
		}
		return cfg.Session(fn)
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
		mux.Handle("/logout", guard(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Logout(w, r)
		}))
		mux.Handle("/change_password", guard(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.ChangePassword(w, r)
		}))
	}

	if cfg.Users != nil {
		mux.Handle("/user", guard(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Users.Create(w, r)
		}))
		mux.Handle("/user/", guard(func(w http.ResponseWriter, r *http.Request) {
			username := strings.TrimPrefix(r.URL.Path, "/user/")
			if username == "" || strings.Contains(username, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithUsername(r.Context(), username))
			switch r.Method {
			case http.MethodGet:
				cfg.Users.Get(w, r)
			case http.MethodPut:
				cfg.Users.Update(w, r)
			case http.MethodDelete:
				cfg.Users.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		}))
		mux.Handle("/users", guard(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Users.List(w, r)
		}))
	}

	if cfg.Activities != nil {
		mux.Handle("/activity", guard(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Activities.Create(w, r)
		}))
		mux.Handle("/activity/", guard(func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/activity/")
			id, tail, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithActivityID(r.Context(), id))

			switch tail {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Activities.Get(w, r)
				case http.MethodPut:
					cfg.Activities.Update(w, r)
				case http.MethodDelete:
					cfg.Activities.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "assign":
				switch r.Method {
				case http.MethodPost:
					cfg.Activities.Assign(w, r)
				case http.MethodDelete:
					cfg.Activities.Unassign(w, r)
				default:
					methodNotAllowed(w, http.MethodPost, http.MethodDelete)
				}
			default:
				http.NotFound(w, r)
			}
		}))
		mux.Handle("/activities", guard(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Activities.List(w, r)
		}))
	}

	if cfg.Maintainers != nil {
		mux.Handle("/maintainer/", guard(func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/maintainer/")
			subject, tail, _ := strings.Cut(rest, "/")
			if subject == "" {
				http.NotFound(w, r)
				return
			}

			resource, remainder, _ := strings.Cut(tail, "/")
			switch resource {
			case "availability":
				r = r.WithContext(ContextWithUsername(r.Context(), subject))
				if remainder != "" {
					if r.Method != http.MethodDelete {
						methodNotAllowed(w, http.MethodDelete)
						return
					}
					r = r.WithContext(ContextWithBlockID(r.Context(), remainder))
					cfg.Maintainers.RemoveAvailability(w, r)
					return
				}
				switch r.Method {
				case http.MethodGet:
					cfg.Maintainers.ListAvailability(w, r)
				case http.MethodPost:
					cfg.Maintainers.DeclareAvailability(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case "availabilities":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				r = r.WithContext(ContextWithActivityID(r.Context(), subject))
				cfg.Maintainers.ProposeSlots(w, r)
			case "workload":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				r = r.WithContext(ContextWithUsername(r.Context(), subject))
				cfg.Maintainers.Workload(w, r)
			default:
				http.NotFound(w, r)
			}
		}))
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

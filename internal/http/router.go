package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	People     *PersonHandler
	Teams      *TeamHandler
	PTO        *PTOHandler
	Schedules  *ScheduleHandler
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.People != nil {
		mux.HandleFunc("/people", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.People.List(w, r)
			case http.MethodPost:
				cfg.People.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/people/", func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/people/"), "/")
			if parts[0] == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPersonID(r.Context(), parts[0]))
			switch {
			case len(parts) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.People.Get(w, r)
				case http.MethodDelete:
					cfg.People.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case len(parts) == 2 && parts[1] == "usage":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.People.Usage(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Teams != nil {
		mux.HandleFunc("/teams", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Teams.List(w, r)
			case http.MethodPost:
				cfg.Teams.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/teams/", func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/teams/"), "/")
			if parts[0] == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithTeamID(r.Context(), parts[0]))
			switch {
			case len(parts) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Teams.Get(w, r)
				case http.MethodDelete:
					cfg.Teams.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case len(parts) == 2 && parts[1] == "members":
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				cfg.Teams.UpdateMembers(w, r)
			case len(parts) == 2 && parts[1] == "oncall-now":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				if cfg.Schedules == nil {
					http.NotFound(w, r)
					return
				}
				cfg.Schedules.OnCallNow(w, r)
			case len(parts) == 2 && parts[1] == "schedules":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				if cfg.Schedules == nil {
					http.NotFound(w, r)
					return
				}
				cfg.Schedules.Generate(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.PTO != nil {
		mux.HandleFunc("/pto", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.PTO.List(w, r)
			case http.MethodPost:
				cfg.PTO.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/pto/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/pto/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			r = r.WithContext(ContextWithPTOID(r.Context(), id))
			cfg.PTO.Delete(w, r)
		})
	}

	if cfg.Schedules != nil {
		mux.HandleFunc("/schedules", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Schedules.Lookup(w, r)
		})
		mux.HandleFunc("/schedules/", func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/schedules/"), "/")
			if parts[0] == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithScheduleID(r.Context(), parts[0]))
			switch {
			case len(parts) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Schedules.Get(w, r)
				case http.MethodDelete:
					cfg.Schedules.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case len(parts) == 3 && parts[1] == "overrides":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				r = r.WithContext(ContextWithSlotIndex(r.Context(), parts[2]))
				cfg.Schedules.Override(w, r)
			case len(parts) == 2 && parts[1] == "reassign":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Schedules.Reassign(w, r)
			case len(parts) == 2 && parts[1] == "remove-person":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Schedules.RemovePerson(w, r)
			case len(parts) == 2 && parts[1] == "export":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Schedules.Export(w, r)
			case len(parts) == 2 && parts[1] == "usage":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Schedules.Usage(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
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

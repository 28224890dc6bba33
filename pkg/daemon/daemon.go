// Package daemon serves the patchbay command tree over HTTP. Every
// runnable command is mounted at its path: GET shows the help text, POST
// runs it with one argument per line of the request body. Runs are
// serialised since commands share flag state.
package daemon

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Endpoint  string
	JWKSURL   string
	JWTSecret string
	Timeout   time.Duration
}

// ConfigFromViper() reads the daemon.* keys.
func ConfigFromViper() Config {
	return Config{
		Endpoint:  viper.GetString("daemon.endpoint"),
		JWKSURL:   viper.GetString("daemon.jwks-url"),
		JWTSecret: viper.GetString("daemon.jwt-secret"),
		Timeout:   viper.GetDuration("daemon.timeout"),
	}
}

type Server struct {
	root   *cobra.Command
	auth   *Authenticator
	config Config
}

func NewServer(ctx context.Context, root *cobra.Command, config Config) (*Server, error) {
	auth, err := NewAuthenticator(ctx, config.JWKSURL, config.JWTSecret)
	if err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Minute
	}
	return &Server{root: root, auth: auth, config: config}, nil
}

// Handler() builds the router for the command tree below root.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Timeout(s.config.Timeout),
	)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok\n")
	})
	router.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Use(middleware.Throttle(1))
		s.mount(r, "", s.root, nil)
	})
	return router
}

// mount() adds the endpoints of cmd and, recursively, its subcommands.
// path holds the arguments that select cmd from the root.
func (s *Server) mount(r chi.Router, endpoint string, cmd *cobra.Command, path []string) {
	endpoint = endpoint + "/" + cmd.Name()
	r.Get(endpoint, s.helpHandler(cmd))
	if cmd.Runnable() {
		r.Post(endpoint, s.commandHandler(path))
	}
	for _, child := range cmd.Commands() {
		if child.Hidden || child.Name() == "daemon" || child.Name() == "help" || child.Name() == "completion" {
			continue
		}
		if child.Runnable() || child.HasSubCommands() {
			s.mount(r, endpoint, child, append(append([]string{}, path...), child.Name()))
		}
	}
}

func (s *Server) helpHandler(cmd *cobra.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Help()
		cmd.SetOut(nil)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}

func (s *Server) commandHandler(path []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		args := append(append([]string{}, path...), bodyArgs(string(body))...)

		var out bytes.Buffer
		err = s.execute(r.Context(), args, &out)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err != nil {
			log.Error().Err(err).Strs("args", args).Msg("daemon command failed")
			w.WriteHeader(http.StatusInternalServerError)
			if out.Len() == 0 {
				out.WriteString(err.Error() + "\n")
			}
		}
		_, _ = w.Write(out.Bytes())
	}
}

// execute() runs the root command with args, capturing its output. Flags
// of the whole tree are reset first so one request cannot leak options
// into the next.
func (s *Server) execute(ctx context.Context, args []string, out io.Writer) error {
	resetFlags(s.root)
	s.root.SetArgs(args)
	s.root.SetOut(out)
	s.root.SetErr(out)
	defer func() {
		s.root.SetOut(nil)
		s.root.SetErr(nil)
		s.root.SetArgs(nil)
	}()
	return s.root.ExecuteContext(ctx)
}

// bodyArgs() splits a request body into arguments, one per line.
func bodyArgs(body string) []string {
	args := []string{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		args = append(args, line)
	}
	return args
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// Run() serves until ctx is done. reload is called whenever the config
// file changes, after the authenticator has picked up the new keys.
func (s *Server) Run(ctx context.Context, reload func()) error {
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("config changed")
		config := ConfigFromViper()
		if err := s.auth.Configure(ctx, config.JWKSURL, config.JWTSecret); err != nil {
			log.Error().Err(err).Msg("failed to reload daemon authentication")
		}
		if reload != nil {
			reload()
		}
	})
	if viper.ConfigFileUsed() != "" {
		viper.WatchConfig()
	}

	server := &http.Server{
		Addr:              s.config.Endpoint,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdown)
	}()

	log.Info().Str("endpoint", s.config.Endpoint).Bool("auth", s.auth.Enabled()).Msg("starting daemon")
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"franchise-crm/internal/client"
	"franchise-crm/internal/core/logger"
)

// app 每条命令共享的依赖，由 PersistentPreRunE 构造
type app struct {
	v           *viper.Viper
	log         *zap.Logger
	sessionPath string
	session     *client.Session
	api         *client.Client
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "crmctl", "session.json")
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var flush func()

	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "Operator CLI for the franchise CRM",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if a.v.GetBool("verbose") {
				level = "debug"
			}
			a.log, flush = logger.New(logger.Options{Level: level, Service: "crmctl"})

			a.sessionPath = a.v.GetString("session")
			sess, err := client.LoadSession(a.sessionPath)
			if err != nil {
				return err
			}
			a.session = sess
			// 会话变化即落盘
			sess.Subscribe(func(info client.SessionInfo) {
				if err := sess.Save(a.sessionPath); err != nil {
					a.log.Warn("save session", zap.String("path", a.sessionPath), zap.Error(err))
				}
			})

			opts := []client.Option{client.WithFunctionsURL(a.v.GetString("functions-url"))}
			if k := a.v.GetString("service-key"); k != "" {
				opts = append(opts, client.WithServiceKey(k))
			}
			a.api = client.New(a.v.GetString("api-url"), sess, opts...)
			a.log.Debug("crmctl ready",
				zap.String("api", a.v.GetString("api-url")),
				zap.String("functions", a.v.GetString("functions-url")),
				zap.Bool("logged_in", sess.Authenticated()))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if flush != nil {
				flush()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.String("api-url", "http://127.0.0.1:8080", "CRM API base URL")
	pf.String("functions-url", "http://127.0.0.1:8081", "provisioning functions base URL")
	pf.String("service-key", "", "backend service key for the provisioning functions")
	pf.String("session", defaultSessionPath(), "session file")
	pf.BoolP("verbose", "v", false, "debug logging")
	_ = a.v.BindPFlags(pf)
	// CRMCTL_API_URL 等环境变量覆盖
	a.v.SetEnvPrefix("CRMCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newBoardCmd(a),
		newMoveCmd(a),
		newUsersCmd(a),
	)
	return root
}

var errNotLoggedIn = errors.New("not logged in; run `crmctl login` first")

func (a *app) requireLogin() error {
	if !a.session.Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

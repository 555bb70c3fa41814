// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write the example configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand starts the mock backend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a mock session backend for trying the client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port)",
			},
			&cli.DurationFlag{
				Name:  "session-ttl",
				Usage: "Access cookie lifetime (default: server.session_ttl)",
			},
			&cli.BoolFlag{
				Name:  "gateway",
				Usage: "Answer unauthenticated API calls with a 200 login page",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the backend session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the session cookies",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("EVCS_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show stored cookies, cached profile and critical mode",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "check",
						Usage: "Verify the session against the backend",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "whoami",
				Usage: "Fetch the signed-in profile and cache it",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.AuthWhoami,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the session now",
				Action: r.AuthRefresh,
			},
			{
				Name:   "logout",
				Usage:  "End the session and clear local state",
				Action: r.AuthLogout,
			},
			{
				Name:  "import",
				Usage: "Import session cookies from a browser \"Copy as cURL\" command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
				},
				Action: r.AuthImport,
			},
		},
	}
}

func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "text",
			Usage: "Expect a non-JSON response",
		},
		&cli.BoolFlag{
			Name:  "no-refresh",
			Usage: "Fail on 401 instead of refreshing the session",
		},
	}
}

func bodyFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "data",
		Aliases:  []string{"d"},
		Usage:    "JSON body to send",
		Required: required,
	}
}

// apiCommand handles authenticated backend calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Call the backend through the session client",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "GET a path and print the response",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     requestFlags(),
				Action:    r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "POST a JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     append(requestFlags(), bodyFlag(true)),
				Action:    r.APIPost,
			},
			{
				Name:      "put",
				Usage:     "PUT a JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     append(requestFlags(), bodyFlag(true)),
				Action:    r.APIPut,
			},
			{
				Name:      "delete",
				Usage:     "DELETE a path",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     requestFlags(),
				Action:    r.APIDelete,
			},
			{
				Name:  "batch",
				Usage: "Send many requests concurrently through one session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Path to request repeatedly",
						Value: "/api/stations",
					},
					&cli.StringFlag{
						Name:  "method",
						Usage: "HTTP method for --path",
						Value: "GET",
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of requests for --path",
						Value:   10,
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "File with one 'METHOD PATH [JSON]' request per line",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Concurrent requests (default: batch.concurrency)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second (default: batch.rate_limit)",
					},
					&cli.StringFlag{
						Name:    "export",
						Aliases: []string{"o"},
						Usage:   "Write the report to a .csv, .md, .json or .txt file",
					},
				},
				Action: r.APIBatch,
			},
		},
	}
}

// criticalCommand toggles critical mode
func criticalCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "critical",
		Usage: "Suspend refresh and logout while a protected operation runs",
		Commands: []*cli.Command{
			{
				Name:   "on",
				Usage:  "Enter critical mode",
				Action: r.CriticalOn,
			},
			{
				Name:   "off",
				Usage:  "Leave critical mode",
				Action: r.CriticalOff,
			},
			{
				Name:   "status",
				Usage:  "Show whether critical mode is active",
				Action: r.CriticalStatus,
			},
		},
	}
}

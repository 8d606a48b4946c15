// rehber-cli is the operator tool: it applies migrations, creates users
// and imports e-Okul exports without going through the web server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/rehberapp/rehber-go/internal/auth"
	"github.com/rehberapp/rehber-go/internal/config"
	"github.com/rehberapp/rehber-go/internal/db"
	"github.com/rehberapp/rehber-go/internal/importer"
	"github.com/rehberapp/rehber-go/internal/store"
	"github.com/rehberapp/rehber-go/migrations"
)

var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{ReportTimestamp: true})

func main() {
	app := &cli.Command{
		Name:    "rehber-cli",
		Usage:   "Administrative tasks for the rehber guidance server",
		Version: "0.3.0",
		Commands: []*cli.Command{
			migrateCommand(),
			createUserCommand(),
			importCommand(),
			transferCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

// openDatabase loads the configuration and returns a migrated connection.
func openDatabase() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(database, migrations.FS); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply all pending database migrations",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()
			logger.Info("migrations applied")
			return nil
		},
	}
}

func createUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-user",
		Usage: "Create a user account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "Login name for the new account",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Initial password",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "Account role: admin or counselor",
				Value: "counselor",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			role := cmd.String("role")
			if role != "admin" && role != "counselor" {
				return fmt.Errorf("invalid role %q: must be admin or counselor", role)
			}

			database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			passwordHash, err := auth.HashPassword(cmd.String("password"))
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}

			user, err := store.New(database).CreateUser(cmd.String("username"), passwordHash, role)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			logger.Info("user created", "username", user.Username, "role", user.Role)
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import an e-Okul student export CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the CSV file",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			count, err := importer.New(store.New(database)).ImportFile(cmd.String("file"))
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			logger.Info("import complete", "students", count)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qalgebra/qalgebra/config"
	"github.com/qalgebra/qalgebra/parser"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

const maxInputLength = 1024 * 1024 // 1MB

type appConfig struct {
	Port     *int     `kong:"short='p',help='Port to listen on'"`
	Config   string   `kong:"short='c',help='YAML configuration file with global settings and rule disables'"`
	Disables []string `kong:"short='d',help='Individual YAML rule-disable files to load (supports glob patterns like dir/*.yaml)'"`
	LogLevel *string  `kong:"short='l',help='Log level (debug, info, warn, error)'"`
	Eval     string   `kong:"short='e',help='Evaluate a single expression, print its canonical form and exit'"`
}

func parseFlags() *appConfig {
	cfg := &appConfig{}

	desc := config.Description
	desc += " [" + config.Version + "]"

	ctx := kong.Parse(cfg,
		kong.Description(desc),
		kong.UsageOnError(),
	)
	if ctx.Error != nil {
		fmt.Fprintln(os.Stderr, ctx.Error)
		os.Exit(1)
	}
	return cfg
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Error().Err(err).Str("level", level).Msg("Invalid log level, defaulting to info")
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	cfg := parseFlags()

	expandedDisables, err := expandGlobs(cfg.Disables)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to expand glob patterns in disable files")
	}

	yamlConfig, err := config.LoadFromSources(cfg.Config, expandedDisables)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	finalPort := yamlConfig.Port
	finalLogLevel := yamlConfig.LogLevel
	if cfg.Port != nil {
		finalPort = *cfg.Port
	}
	if cfg.LogLevel != nil {
		finalLogLevel = *cfg.LogLevel
	}

	setupLogger(finalLogLevel)

	if err := yamlConfig.Apply(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply rule disables")
	}

	p, err := parser.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build expression parser")
	}

	if cfg.Eval != "" {
		v, err := p.Parse(cfg.Eval)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to evaluate expression")
		}
		key, _ := describeValue(v)
		fmt.Println(key)
		return
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             maxInputLength,
	})

	setupRoutes(app, p)

	go func() {
		log.Info().Int("port", finalPort).Msg("Starting server")
		for _, d := range yamlConfig.Disables {
			log.Info().Str("type", d.Type).Strs("rules", d.Rules).Msg("Rules disabled")
		}

		if err := app.Listen(fmt.Sprintf(":%d", finalPort)); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down server")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

func setupRoutes(app *fiber.App, p *parser.Parser) {
	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	// Simplification endpoint
	app.Post("/simplify", handleSimplify(p))

	// Info page
	app.Get("/", handleInfo)
}

func handleSimplify(p *parser.Parser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if len(body) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "empty request body",
			})
		}

		var (
			v   any
			err error
		)
		if strings.Contains(c.Get("Content-Type"), "application/json") {
			v, err = parser.ParseProto(body)
		} else {
			v, err = p.Parse(string(body))
		}
		if err != nil {
			log.Debug().Err(err).Msg("Failed to simplify expression")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		key, kind := describeValue(v)
		return c.JSON(fiber.Map{
			"result": key,
			"kind":   kind,
		})
	}
}

// describeValue yields the canonical form of a simplification result
// and the algebra it belongs to.
func describeValue(v any) (key, kind string) {
	switch x := v.(type) {
	case quantum.Expr:
		return x.Key(), x.AlgebraRef().Name
	case scalar.Scalar:
		return x.Key(), "scalar"
	}
	return fmt.Sprintf("%v", v), "unknown"
}

func handleInfo(c *fiber.Ctx) error {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>` + config.Title + `</title>
</head>
<body>
    <div class="container">
        <h1>` + config.Title + `</h1>
        <p>` + config.Description + `</p>

        <h2>Build Information</h2>
        <p><strong>Version:</strong> <tt>` + config.Version + `</tt></p>
        <p><strong>Build Date:</strong> <tt>` + config.Buildtime + `</tt></p>
        <p><strong>Build Hash:</strong> <tt>` + config.Buildhash + `</tt></p>

        <h2>Available API Endpoints</h2>
        <dl>
            <dt><tt><strong>GET</strong> /health</tt></dt>
            <dd><small>Health check</small></dd>

            <dt><tt><strong>POST</strong> /simplify</tt></dt>
            <dd><small>Simplify a textual expression (plain text) or a
            JSON proto-expression (application/json) to its canonical
            form</small></dd>
        </dl>
    </body>
</html>`

	c.Set("Content-Type", "text/html")
	return c.SendString(html)
}

// expandGlobs expands glob patterns in the slice of file paths.
func expandGlobs(patterns []string) ([]string, error) {
	var expanded []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to expand glob pattern '%s': %w", pattern, err)
		}

		if len(matches) == 0 {
			log.Warn().Str("pattern", pattern).Msg("Glob pattern matched no files, treating as literal filename")
			expanded = append(expanded, pattern)
		} else {
			expanded = append(expanded, matches...)
		}
	}

	return expanded, nil
}

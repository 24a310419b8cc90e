package main

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/pattamap/server/internal/config"
	"github.com/pattamap/server/internal/data"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	flagConfig  string
	flagZone    string
	flagBaseURL string
	flagToken   string
	flagLogFile string
	flagNoSound bool
)

var rootCmd = &cobra.Command{
	Use:   "mapedit",
	Short: "Drag establishments around a zone grid from the terminal",
	Long: `mapedit shows one zone's grid and lets an editor move or swap establishments
with the mouse. Every drop is sent to the PattaMap API; the board updates
optimistically and rolls back when the server rejects the change.

Keys: r refresh, esc cancel drag, q quit.`,
	SilenceUsage: true,
	RunE:         runEditor,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "config/server.toml", "config file (defaults are used when missing)")
	rootCmd.Flags().StringVar(&flagZone, "zone", "", "zone to edit (overrides [editor] zone)")
	rootCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "API base URL (overrides [editor] base_url)")
	rootCmd.Flags().StringVar(&flagToken, "token", "", "editor token name.secret (overrides [editor] token, or PATTAMAP_TOKEN)")
	rootCmd.Flags().StringVar(&flagLogFile, "log", "mapedit.log", "log file; the terminal belongs to the editor")
	rootCmd.Flags().BoolVar(&flagNoSound, "no-sound", false, "use the terminal bell instead of audio pulses")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEditor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	applyFlags(cfg)

	log, err := newLogger(cfg.Logging, flagLogFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	zones, err := data.LoadZones(cfg.Data.ZonesPath)
	if err != nil {
		return err
	}
	zone, err := zones.Get(cfg.Editor.Zone)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	screen.EnableMouse()
	screen.HideCursor()

	ed := newEditor(screen, cfg.Editor, zone, log)
	defer ed.close()

	log.Info("editor started",
		zap.String("zone", zone.ID),
		zap.String("base_url", cfg.Editor.BaseURL))
	ed.run()
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func applyFlags(cfg *config.Config) {
	if flagZone != "" {
		cfg.Editor.Zone = flagZone
	}
	if flagBaseURL != "" {
		cfg.Editor.BaseURL = flagBaseURL
	}
	if tok := os.Getenv("PATTAMAP_TOKEN"); tok != "" {
		cfg.Editor.Token = tok
	}
	if flagToken != "" {
		cfg.Editor.Token = flagToken
	}
	if flagNoSound {
		cfg.Editor.Sound = false
	}
}

func newLogger(cfg config.LoggingConfig, path string) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{path}
	zapCfg.ErrorOutputPaths = []string{path}

	return zapCfg.Build()
}

// Command wiiwad is a minimal demo CLI wiring libwii's packages
// together: fetch a title's certificate chain, TMD and ticket from the
// NUS (their sizes are logged; nothing is written to disk), install a WAD
// into or uninstall a title from an EmuNAND, or fakesign a WAD already on
// disk. Grounded on the teacher's
// main.go composition root (settings load -> component wiring -> run),
// trimmed of the TUI/FTP/HTTP server surfaces spec.md's Non-goals place
// out of scope.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/ralim/libwii/emunand"
	"github.com/ralim/libwii/nus"
	"github.com/ralim/libwii/settings"
	"github.com/ralim/libwii/title"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	settingsPath := "config.json"
	if override := os.Getenv("WIIWAD_CONFIG"); override != "" {
		settingsPath = override
	}
	cfg := settings.NewSettings(settingsPath)

	switch os.Args[1] {
	case "install":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: wiiwad install <path-to.wad>")
			os.Exit(2)
		}
		if err := runInstall(cfg, os.Args[2]); err != nil {
			log.Fatal().Err(err).Msg("install failed")
		}
	case "uninstall":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: wiiwad uninstall <title-id-hex>")
			os.Exit(2)
		}
		if err := runUninstall(cfg, os.Args[2]); err != nil {
			log.Fatal().Err(err).Msg("uninstall failed")
		}
	case "download":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: wiiwad download <title-id-hex>")
			os.Exit(2)
		}
		if err := runDownload(cfg, os.Args[2]); err != nil {
			log.Fatal().Err(err).Msg("download failed")
		}
	case "fakesign":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: wiiwad fakesign <path-to.wad>")
			os.Exit(2)
		}
		if err := runFakesign(os.Args[2]); err != nil {
			log.Fatal().Err(err).Msg("fakesign failed")
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: wiiwad <install|uninstall|download|fakesign> <arg>")
}

func runInstall(cfg *settings.Settings, wadPath string) error {
	data, err := os.ReadFile(wadPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", wadPath, err)
	}
	t, err := title.LoadWAD(data)
	if err != nil {
		return fmt.Errorf("parsing WAD: %w", err)
	}
	installer, err := emunand.NewInstaller(cfg.EmuNANDRoot)
	if err != nil {
		return fmt.Errorf("preparing EmuNAND at %s: %w", cfg.EmuNANDRoot, err)
	}
	if err := installer.InstallTitle(&t, cfg.SkipHashOnWrite); err != nil {
		return err
	}
	log.Info().Uint64("titleID", t.TMD.TitleID).Str("emunand", cfg.EmuNANDRoot).Msg("installed title")
	return nil
}

func runUninstall(cfg *settings.Settings, titleIDHex string) error {
	var titleID uint64
	if _, err := fmt.Sscanf(titleIDHex, "%016x", &titleID); err != nil {
		return fmt.Errorf("parsing title ID %q: %w", titleIDHex, err)
	}
	installer, err := emunand.NewInstaller(cfg.EmuNANDRoot)
	if err != nil {
		return fmt.Errorf("opening EmuNAND at %s: %w", cfg.EmuNANDRoot, err)
	}
	return installer.UninstallTitle(titleID)
}

func runDownload(cfg *settings.Settings, titleIDHex string) error {
	cache, err := nus.NewCache(cfg.NUSCacheFolder)
	if err != nil {
		return fmt.Errorf("opening NUS cache at %s: %w", cfg.NUSCacheFolder, err)
	}
	opts := []nus.Option{nus.WithCache(cache)}
	switch {
	case cfg.UseWiiUEndpoint:
		opts = append(opts, nus.WithWiiUEndpoint())
	case cfg.UseDevEndpoint:
		opts = append(opts, nus.WithDevEndpoint())
	}
	client := nus.NewClient(opts...)

	progress := func(done, total int64) {
		if total > 0 {
			log.Debug().Int64("done", done).Int64("total", total).Msg("downloading")
		}
	}

	certChain, err := client.DownloadCertChain()
	if err != nil {
		return fmt.Errorf("downloading cert chain: %w", err)
	}
	tmdRaw, err := client.DownloadTMD(titleIDHex, nil, progress)
	if err != nil {
		return fmt.Errorf("downloading TMD: %w", err)
	}
	ticketRaw, err := client.DownloadTicket(titleIDHex, progress)
	if err != nil {
		return fmt.Errorf("downloading ticket: %w", err)
	}
	log.Info().
		Int("certBytes", len(certChain)).
		Int("tmdBytes", len(tmdRaw)).
		Int("ticketBytes", len(ticketRaw)).
		Str("titleID", titleIDHex).
		Msg("downloaded title components")
	return nil
}

func runFakesign(wadPath string) error {
	data, err := os.ReadFile(wadPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", wadPath, err)
	}
	t, err := title.LoadWAD(data)
	if err != nil {
		return fmt.Errorf("parsing WAD: %w", err)
	}
	if err := t.Fakesign(); err != nil {
		return fmt.Errorf("fakesigning: %w", err)
	}
	if err := os.WriteFile(wadPath, t.DumpWAD(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", wadPath, err)
	}
	log.Info().Str("path", wadPath).Msg("fakesigned WAD in place")
	return nil
}

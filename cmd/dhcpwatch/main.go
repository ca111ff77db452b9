// ===== cmd/dhcpwatch/main.go =====
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"dhcpwatch/internal/capture"
	"dhcpwatch/internal/capture/live"
	"dhcpwatch/internal/config"
	"dhcpwatch/internal/dhcp"
	"dhcpwatch/internal/log"
	"dhcpwatch/internal/mac"
	"dhcpwatch/internal/monitor"
	"dhcpwatch/internal/update"
	"dhcpwatch/internal/version"
	"dhcpwatch/internal/web"
	"dhcpwatch/pkg/models"
	"dhcpwatch/pkg/utils"
)

const (
	configFile = "dhcpwatch.ini"
)

var (
	cfgPath    string
	pcapFile   string
	listenAddr string
	offset     int
)

func main() {
	root := &cobra.Command{
		Use:          "dhcpwatch",
		Short:        "Watch DHCP traffic and report Option 50 requests",
		RunE:         runServe,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", configFile, "Path to the INI configuration file")

	serve := &cobra.Command{
		Use:          "serve",
		Short:        "Run the capture monitor and HTTP API (default)",
		RunE:         runServe,
		SilenceUsage: true,
	}
	for _, cmd := range []*cobra.Command{root, serve} {
		cmd.Flags().StringVar(&pcapFile, "pcap", "", "Replay a pcap or pcapng file instead of capturing live")
		cmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address")
	}

	decode := &cobra.Command{
		Use:          "decode <raw>",
		Short:        "Decode the DHCP options of a hex or [decimal, list] buffer",
		Args:         cobra.MinimumNArgs(1),
		RunE:         runDecode,
		SilenceUsage: true,
	}
	decode.Flags().IntVar(&offset, "offset", -1, "Options offset (default from config)")

	interfaces := &cobra.Command{
		Use:          "interfaces",
		Short:        "List capture interfaces",
		RunE:         runInterfaces,
		SilenceUsage: true,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dhcpwatch %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildDate)
		},
	}

	root.AddCommand(serve, decode, interfaces, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.New(cfgPath)
	if err != nil {
		return nil, err
	}
	if pcapFile != "" {
		cfg.PcapFile = pcapFile
	}
	if listenAddr != "" {
		cfg.HTTPListen = listenAddr
	}

	log.InitStdoutLogger(cfg.LogLevel)
	return cfg, nil
}

func newOpener(cfg *config.Config) capture.Opener {
	if cfg.PcapFile != "" {
		return capture.NewFileOpener(cfg.PcapFile)
	}
	return live.NewOpener(cfg.SnapLen, cfg.Promiscuous)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Logger.Infof("dhcpwatch: Build %s, Commit %s, Time %s", version.Version, version.Commit, version.BuildDate)

	encoding, err := cfg.Encoding()
	utils.CheckFatal(err, "Invalid raw data encoding")

	// Initialize MAC database
	macDB, err := mac.NewDatabase(cfg.MACDBFile)
	if err != nil {
		log.Logger.Warnf("Warning: MAC vendor lookup disabled: %v", err)
		macDB, _ = mac.NewDatabase("")
	}

	decoder := dhcp.NewDecoder(cfg.Scanner())
	engine := capture.NewEngine(
		newOpener(cfg),
		capture.NewRecordBuilder(decoder, encoding),
		capture.NewBuffer(cfg.BufferLimit),
	)

	// Initialize monitor
	mon := monitor.New(cfg, engine, decoder, macDB)
	if err := mon.Start(); err != nil {
		return utils.WrapError(err, "failed to start monitor")
	}
	defer mon.Stop()

	if !mon.DriverInstalled() {
		log.Logger.Warn("Packet capture driver not available, capture cannot be started")
	}

	if cfg.Interface != "" {
		utils.CheckWarn(mon.StartCapture(cfg.Interface), "failed to start capture on "+cfg.Interface)
	}

	var checker *update.Checker
	if cfg.UpdateRepo != "" {
		checker = update.NewChecker(update.NewHTTPClient(), cfg.UpdateURL, cfg.UpdateRepo, version.Version)
	}

	// Initialize web server
	webServer := web.NewServer(cfg, mon, checker)
	go func() {
		log.Logger.Infof("Starting HTTP server on %s", cfg.HTTPListen)
		if err := webServer.Start(); err != nil {
			log.Logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	utils.CheckWarn(webServer.Shutdown(shutdownCtx), "HTTP server shutdown")

	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scanner := cfg.Scanner()
	if offset >= 0 {
		scanner.Offset = offset
	}

	raw := models.NewRawData(strings.Join(args, " "))
	options, err := dhcp.NewDecoder(scanner).Decode(raw)
	if err != nil {
		return fmt.Errorf("failed to decode %s buffer: %w", raw.Encoding, err)
	}

	if len(options) == 0 {
		fmt.Println("No options found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tLEN\tVALUE")
	for _, opt := range options {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", opt.Code, opt.Name, opt.Length, opt.Value)
	}
	return w.Flush()
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opener := newOpener(cfg)
	if !opener.DriverInstalled() {
		return fmt.Errorf("%w: capture driver is not installed", capture.ErrCaptureUnavailable)
	}

	ifaces, err := opener.Interfaces()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDEVICE\tUP\tADDRESSES\tDESCRIPTION")
	for _, iface := range ifaces {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
			iface.Name, iface.RealName, iface.IsUp, strings.Join(iface.Addresses, ","), iface.Description)
	}
	return w.Flush()
}

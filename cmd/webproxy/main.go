package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/always-cache/webproxy"
	"github.com/always-cache/webproxy/admin"
	"github.com/always-cache/webproxy/journal"
	requestbuilder "github.com/always-cache/webproxy/pkg/request-builder"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	adminAddrFlag      string
	journalFlag        string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to YAML config file")
	flag.StringVar(&adminAddrFlag, "admin", "", "Listen address of the admin API (overrides config, disabled if empty)")
	flag.StringVar(&journalFlag, "journal", "", "Transaction journal DB file name ('memory' for in-memory db, 'off' to disable, overrides config)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <port>\n", os.Args[0])
		flag.PrintDefaults()
	}

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	port := flag.Arg(0)

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	var fileConfig webproxy.FileConfig
	if configFilenameFlag != "" {
		var err error
		if fileConfig, err = webproxy.GetConfig(configFilenameFlag); err != nil {
			log.Fatal().Err(err).Str("file", configFilenameFlag).Msg("Could not read config")
		}
	}
	if adminAddrFlag != "" {
		fileConfig.Admin = adminAddrFlag
	}
	if journalFlag != "" {
		fileConfig.Journal = journalFlag
	}
	if fileConfig.Journal == "" {
		fileConfig.Journal = "memory"
	}

	// the one cache shared by every worker
	objectCache := fileConfig.NewCache()
	proxyConfig := fileConfig.ProxyConfig(objectCache)
	proxyConfig.Logger = &log.Logger

	var txnJournal journal.Journal
	if fileConfig.Journal != "off" {
		sqliteJournal, err := journal.NewSQLiteJournal(fileConfig.Journal)
		if err != nil {
			log.Fatal().Err(err).Str("db", fileConfig.Journal).Msg("Could not open journal")
		}
		defer sqliteJournal.Close()
		txnJournal = sqliteJournal
		proxyConfig.Journal = sqliteJournal
	}

	proxy := webproxy.CreateProxy(proxyConfig)

	if fileConfig.Admin != "" {
		adminRouter := admin.NewRouter(objectCache, txnJournal, log.Logger.With().Str("component", "admin").Logger())
		go func() {
			log.Info().Msgf("Admin API listening on %s", fileConfig.Admin)
			if err := http.ListenAndServe(fileConfig.Admin, adminRouter); err != nil {
				log.Error().Err(err).Msg("Admin API stopped")
			}
		}()
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("", port))
	if err != nil {
		log.Fatal().Err(err).Str("port", port).Msg("Could not listen")
	}
	log.Info().Str("userAgent", requestbuilder.UserAgent).Msgf("Proxying on port %s", port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := proxy.Serve(ctx, ln); err != nil {
		log.Fatal().Err(err).Msg("Proxy stopped")
	}
	log.Info().Msg("Proxy shut down")
}

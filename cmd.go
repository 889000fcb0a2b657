package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "1.0.0" // set during build with -ldflags

var rootCmd = &cobra.Command{
	Use:   "mcline",
	Short: "mcline - a concurrent, in-memory cache server",
	Long: `mcline is a TCP cache server speaking a line-oriented,
memcached-style ASCII protocol: set/add/replace/append/prepend for
storage, get for retrieval, delete and version as supplemental commands.`,
	Version: version,
	RunE:    runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	SetLogLevel(config.LogLevel)

	logInfof("starting mcline v%s", version)
	logInfof("listening on %s:%d", config.Host, config.Port)

	server := NewServer(config, nil)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-sigChan:
		logInfof("shutting down")
		server.Stop()
		snap := server.Stats()
		logInfof("shutdown complete: gets=%d sets=%d adds=%d replaces=%d appends=%d prepends=%d deletes=%d bytes_read=%d bytes_written=%d connections_served=%d",
			snap.Gets, snap.Sets, snap.Adds, snap.Replaces, snap.Appends, snap.Prepends, snap.Deletes,
			snap.BytesRead, snap.BytesWritten, snap.TotalAccepted)
	}

	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		fmt.Println("mcline configuration:")
		fmt.Println(strings.Repeat("=", 31))
		fmt.Printf("Host: %s\n", config.Host)
		fmt.Printf("Port: %d\n", config.Port)
		fmt.Printf("Max Clients: %d\n", config.MaxClients)
		fmt.Printf("Sweep Interval: %v\n", config.SweepInterval)
		fmt.Printf("Log Level: %s\n", config.LogLevel)
		fmt.Printf("Log Format: %s\n", config.LogFormat)
		fmt.Printf("TCP Keep-Alive: %t\n", config.TCPKeepAlive)
		fmt.Printf("Read Timeout: %v\n", config.ReadTimeout)
		fmt.Printf("Write Timeout: %v\n", config.WriteTimeout)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mcline v%s\n", version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("host", "H", "0.0.0.0", "Host to bind to")
	rootCmd.PersistentFlags().IntP("port", "p", 8012, "Port to listen on")
	rootCmd.PersistentFlags().Int("max-clients", 10000, "Maximum number of concurrent clients")
	rootCmd.PersistentFlags().Duration("sweep-interval", 10*time.Second, "Expired-key sweep interval")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (shown by 'config'; log output is always plain text)")
	rootCmd.PersistentFlags().Bool("tcp-keepalive", true, "Enable TCP keep-alive")
	rootCmd.PersistentFlags().Duration("read-timeout", 30*time.Second, "Read timeout")
	rootCmd.PersistentFlags().Duration("write-timeout", 30*time.Second, "Write timeout")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("max_clients", rootCmd.PersistentFlags().Lookup("max-clients"))
	viper.BindPFlag("sweep_interval", rootCmd.PersistentFlags().Lookup("sweep-interval"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("tcp_keepalive", rootCmd.PersistentFlags().Lookup("tcp-keepalive"))
	viper.BindPFlag("read_timeout", rootCmd.PersistentFlags().Lookup("read-timeout"))
	viper.BindPFlag("write_timeout", rootCmd.PersistentFlags().Lookup("write-timeout"))

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute is the CLI entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

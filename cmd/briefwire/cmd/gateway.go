package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Briefwire/Briefwire/internal/collector"
	"github.com/Briefwire/Briefwire/internal/gateway"
	"github.com/Briefwire/Briefwire/internal/scheduler"
	"github.com/Briefwire/Briefwire/internal/store"
	"github.com/spf13/cobra"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the briefwire gateway (API, scheduler, collector)",
	Run:   runGateway,
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("🌐 Briefwire Gateway")
	fmt.Println("Starting Briefwire Gateway...")

	a, err := buildApp()
	if err != nil {
		fmt.Printf("Startup error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Start the event collector (conditional)
	if a.cfg.Ingest.Enabled {
		src := collector.NewKafkaSource(
			a.cfg.Ingest.Brokers,
			a.cfg.Ingest.Topic,
			a.cfg.Ingest.ConsumerGroup,
		)
		coll := collector.New(src, a.store)
		go func() {
			if err := coll.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Printf("⚠️ Collector stopped: %v\n", err)
			}
		}()
		defer src.Close()
		fmt.Println("📡 Event collector started:", a.cfg.Ingest.Topic)
	}

	// Start the cron scheduler (conditional)
	if a.cfg.Scheduler.Enabled {
		// Seed default jobs if missing
		seedJob := func(name, expr, kind string) {
			if err := a.store.SeedCronJob(name, expr, kind, true); err != nil {
				fmt.Printf("⚠️ Seed cron job %s: %v\n", name, err)
			}
		}
		seedJob("pipeline-minutely", "* * * * *", store.CronKindPipeline)
		seedJob("tasks-minutely", "* * * * *", store.CronKindTasks)


		cron := scheduler.NewCron(scheduler.CronConfig{
			Enabled:      true,
			TickInterval: a.cfg.Scheduler.TickInterval,
			LockPath:     a.cfg.Scheduler.LockPath,
			BatchLimit:   a.cfg.Pipeline.BatchLimit,
		}, a.store, a.pipeline, a.tasks)
		go cron.Run(ctx)
		fmt.Println("Scheduler started")
	}

	// Start the HTTP API server
	srv := gateway.New(gateway.Options{
		Store:     a.store,
		Pipeline:  a.pipeline,
		Actions:   a.actions,
		Tasks:     a.tasks,
		Ledger:    a.ledger,
		AuthToken: a.cfg.Gateway.AuthToken,
		Version:   version,
	})
	addr := gateway.Addr(a.cfg.Gateway.Host, a.cfg.Gateway.Port)
	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			fmt.Printf("API Server Error: %v\n", err)
		}
	}()
	fmt.Printf("📡 API Server listening on http://%s\n", addr)

	<-sigChan
	fmt.Println("\nShutting down...")
	cancel()
}

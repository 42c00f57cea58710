package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/oncorisk/pkg/audit"
	"github.com/synaptica-ai/oncorisk/pkg/common/config"
	"github.com/synaptica-ai/oncorisk/pkg/common/kafka"
	"github.com/synaptica-ai/oncorisk/pkg/common/models"
)

type auditFlags struct {
	topic string
	group string
}

func newAuditCmd(_ *globalFlags) *cobra.Command {
	a := &auditFlags{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Tail assessment events from Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if !cfg.KafkaEnabled() {
				return errors.New("KAFKA_BROKERS is not set")
			}
			if a.topic == "" {
				a.topic = cfg.KafkaEventsTopic
			}
			if a.group == "" {
				a.group = cfg.KafkaGroupID
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			consumer := kafka.NewConsumer(cfg.KafkaBrokers, a.topic, a.group)
			defer consumer.Close()

			out := cmd.OutOrStdout()
			err := consumer.Consume(ctx, func(_ context.Context, event models.Event) error {
				_, err := fmt.Fprintln(out, audit.Format(event))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.topic, "topic", "", "Events topic (default KAFKA_EVENTS_TOPIC)")
	f.StringVar(&a.group, "group", "", "Consumer group (default KAFKA_GROUP_ID)")
	return cmd
}

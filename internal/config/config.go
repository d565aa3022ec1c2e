// Package config assembles the print server configuration from defaults, an
// optional YAML file and PRINTSRV_* environment variables. Command-line flags
// are applied on top in main.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/imrishuroy/go-ticketprint/internal/printer"
	"github.com/imrishuroy/go-ticketprint/internal/ticket"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Printer Printer `yaml:"printer"`
	Ticket  Ticket  `yaml:"ticket"`
	Dedup   Dedup   `yaml:"dedup"`
	AWS     AWS     `yaml:"aws"`
	Kafka   Kafka   `yaml:"kafka"`
	Tracing Tracing `yaml:"tracing"`
	Log     Log     `yaml:"log"`
	Station string  `yaml:"station"` // identifies this printer in metrics and notifications
}

type Server struct {
	Addr            string        `yaml:"addr"`
	Secret          string        `yaml:"secret"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Printer struct {
	printer.Config   `yaml:",inline"`
	SubmitTimeout    time.Duration `yaml:"submit_timeout"`
	InterTicketDelay time.Duration `yaml:"inter_ticket_delay"`
}

type Ticket struct {
	Width            int      `yaml:"width"`
	MerchantName     string   `yaml:"merchant_name"`
	MerchantLines    []string `yaml:"merchant_lines"`
	ClosingLine      string   `yaml:"closing_line"`
	DeliveryFeeCents int64    `yaml:"delivery_fee_cents"`
	DecimalSeparator string   `yaml:"decimal_separator"`
	Timezone         string   `yaml:"timezone"`
}

type Dedup struct {
	Backend    string `yaml:"backend"` // memory or redis
	MaxHistory int    `yaml:"max_history"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisKey   string `yaml:"redis_key"`
}

type AWS struct {
	Region           string        `yaml:"region"`
	Endpoint         string        `yaml:"endpoint"`
	LedgerTable      string        `yaml:"ledger_table"`
	LedgerRetention  time.Duration `yaml:"ledger_retention"`
	OutcomeQueueURL  string        `yaml:"outcome_queue_url"`
	IntakeQueueURL   string        `yaml:"intake_queue_url"`
	MetricsNamespace string        `yaml:"metrics_namespace"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type Tracing struct {
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":3333",
			ShutdownTimeout: 20 * time.Second,
		},
		Printer: Printer{
			Config: printer.Config{
				Kind:    printer.KindSpooler,
				Name:    "TM-T20III",
				Charset: "cp858",
			},
			SubmitTimeout:    15 * time.Second,
			InterTicketDelay: 500 * time.Millisecond,
		},
		Ticket: Ticket{
			Width:            42,
			MerchantName:     "DWICH62",
			MerchantLines:    []string{"135 Ter Rue Jules Guesde", "62800 LIEVIN - 07 67 46 95 02"},
			ClosingLine:      "Thank you! - www.dwich62.fr",
			DeliveryFeeCents: 500,
			DecimalSeparator: ",",
			Timezone:         "Europe/Paris",
		},
		Dedup: Dedup{
			Backend:    "memory",
			MaxHistory: 100,
			RedisKey:   "printsrv",
		},
		AWS: AWS{
			Region:          "eu-west-3",
			LedgerRetention: 30 * 24 * time.Hour,
		},
		Kafka: Kafka{
			GroupID: "printsrv",
		},
		Log: Log{
			Level: "info",
			JSON:  true,
		},
		Station: "main",
	}
}

// Load returns Default, overlaid with the YAML file at path (if any) and
// then the environment.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c = fromEnv(c)
	return c, c.Validate()
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Ticket.Width < 24 {
		return fmt.Errorf("ticket.width must be at least 24, got %d", c.Ticket.Width)
	}
	if c.Ticket.DeliveryFeeCents < 0 {
		return fmt.Errorf("ticket.delivery_fee_cents must not be negative")
	}
	switch c.Dedup.Backend {
	case "memory", "":
	case "redis":
		if c.Dedup.RedisAddr == "" {
			return fmt.Errorf("dedup.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown dedup.backend %q", c.Dedup.Backend)
	}
	if _, err := time.LoadLocation(c.Ticket.Timezone); err != nil {
		return fmt.Errorf("ticket.timezone: %w", err)
	}
	return nil
}

func fromEnv(c Config) Config {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	list := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			var out []string
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			*dst = out
		}
	}

	str("PRINTSRV_ADDR", &c.Server.Addr)
	str("PRINTSRV_SECRET", &c.Server.Secret)
	dur("PRINTSRV_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	str("PRINTSRV_PRINTER_KIND", &c.Printer.Kind)
	str("PRINTSRV_PRINTER_NAME", &c.Printer.Name)
	str("PRINTSRV_PRINTER_ADDRESS", &c.Printer.Address)
	str("PRINTSRV_PRINTER_PATH", &c.Printer.Path)
	str("PRINTSRV_PRINTER_CHARSET", &c.Printer.Charset)
	dur("PRINTSRV_PRINTER_TIMEOUT", &c.Printer.SubmitTimeout)
	dur("PRINTSRV_PRINTER_DELAY", &c.Printer.InterTicketDelay)

	if v := os.Getenv("PRINTSRV_TICKET_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ticket.Width = n
		}
	}
	if v := os.Getenv("PRINTSRV_DELIVERY_FEE_CENTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Ticket.DeliveryFeeCents = n
		}
	}
	str("PRINTSRV_DECIMAL_SEPARATOR", &c.Ticket.DecimalSeparator)
	str("PRINTSRV_TIMEZONE", &c.Ticket.Timezone)

	str("PRINTSRV_DEDUP_BACKEND", &c.Dedup.Backend)
	if v := os.Getenv("PRINTSRV_DEDUP_MAX_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dedup.MaxHistory = n
		}
	}
	str("PRINTSRV_REDIS_ADDR", &c.Dedup.RedisAddr)
	str("PRINTSRV_REDIS_KEY", &c.Dedup.RedisKey)

	str("PRINTSRV_AWS_REGION", &c.AWS.Region)
	str("AWS_ENDPOINT_OVERRIDE", &c.AWS.Endpoint)
	str("PRINTSRV_LEDGER_TABLE", &c.AWS.LedgerTable)
	str("PRINTSRV_OUTCOME_QUEUE_URL", &c.AWS.OutcomeQueueURL)
	str("PRINTSRV_INTAKE_QUEUE_URL", &c.AWS.IntakeQueueURL)
	str("PRINTSRV_METRICS_NAMESPACE", &c.AWS.MetricsNamespace)

	list("PRINTSRV_KAFKA_BROKERS", &c.Kafka.Brokers)
	str("PRINTSRV_KAFKA_TOPIC", &c.Kafka.Topic)
	str("PRINTSRV_KAFKA_GROUP", &c.Kafka.GroupID)

	str("PRINTSRV_JAEGER_ENDPOINT", &c.Tracing.JaegerEndpoint)

	str("PRINTSRV_LOG_LEVEL", &c.Log.Level)
	if v := os.Getenv("PRINTSRV_LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.Log.JSON = true
		case "0", "false", "FALSE":
			c.Log.JSON = false
		}
	}
	str("PRINTSRV_STATION", &c.Station)
	return c
}

// UsesAWS reports whether any AWS-backed component is configured.
func (c Config) UsesAWS() bool {
	return c.AWS.LedgerTable != "" || c.AWS.OutcomeQueueURL != "" ||
		c.AWS.IntakeQueueURL != "" || c.AWS.MetricsNamespace != ""
}

// Layout converts the ticket section for the renderer.
func (t Ticket) Layout() ticket.Layout {
	l := ticket.Layout{
		Width:            t.Width,
		MerchantName:     t.MerchantName,
		MerchantLines:    t.MerchantLines,
		ClosingLine:      t.ClosingLine,
		DeliveryFeeCents: t.DeliveryFeeCents,
		DecimalSeparator: t.DecimalSeparator,
		Location:         time.UTC,
	}
	if loc, err := time.LoadLocation(t.Timezone); err == nil {
		l.Location = loc
	}
	return l
}

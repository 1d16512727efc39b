package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"exchange/jobs/broadcaster"
)

// KafkaConfig names brokers and topics on both sides of the engine.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"groupId"`
	Inbound struct {
		OrderData     string `yaml:"orderData"`
		StateChange   string `yaml:"stateChange"`
		ReferenceData string `yaml:"referenceData"`
	} `yaml:"inbound"`
	Outbound   broadcaster.Topics `yaml:"outbound"`
	AuditTopic string             `yaml:"auditTopic"`
}

type EngineConfig struct {
	Partitions int `yaml:"partitions"`
}

type RefdataConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	Kafka   KafkaConfig   `yaml:"kafka"`
	Engine  EngineConfig  `yaml:"engine"`
	Refdata RefdataConfig `yaml:"refdata"`
	Log     LogConfig     `yaml:"log"`
}

func Default() Config {
	var c Config
	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Kafka.GroupID = "matching-engine"
	c.Kafka.Inbound.OrderData = "order-data"
	c.Kafka.Inbound.StateChange = "state-change"
	c.Kafka.Inbound.ReferenceData = "reference-data"
	c.Kafka.Outbound = broadcaster.Topics{
		OrderData:   "order-data-out",
		TradeData:   "trade-data",
		TopOfBook:   "top-of-book",
		StateChange: "state-change-out",
	}
	c.Kafka.AuditTopic = "audit-trail"
	c.Engine.Partitions = 4
	c.Refdata.Dir = "./refdata-db"
	c.Log.Level = "info"
	return c
}

// Load reads the YAML file over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return Config{}, err
	}
	if c.Engine.Partitions < 1 {
		return Config{}, fmt.Errorf("engine.partitions must be at least 1, got %d", c.Engine.Partitions)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("EXCHANGE_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("EXCHANGE_KAFKA_GROUP_ID"); v != "" {
		c.Kafka.GroupID = v
	}
	if v := os.Getenv("EXCHANGE_REFDATA_DIR"); v != "" {
		c.Refdata.Dir = v
	}
	if v := os.Getenv("EXCHANGE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("EXCHANGE_ENGINE_PARTITIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EXCHANGE_ENGINE_PARTITIONS: %w", err)
		}
		c.Engine.Partitions = n
	}
	return nil
}

package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerHost            string
	FederatedServicePort  string
	PredictionServicePort string
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	MaxRequestBody        int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	ModelCacheTTL time.Duration

	// Kafka
	KafkaBrokers     []string
	KafkaGroupID     string
	ModelEventsTopic string

	// Learning subsystem
	Training TrainingConfig
}

// TrainingConfig carries the hyperparameters for local training and federated
// aggregation. Environment variables win over the optional YAML file
// (TRAINING_CONFIG_FILE), which wins over the built-in defaults.
type TrainingConfig struct {
	LearningRate        float64 `yaml:"learning_rate"`
	Epochs              int     `yaml:"epochs"`
	Regularization      float64 `yaml:"regularization"`
	ValidationSplit     float64 `yaml:"validation_split"`
	Momentum            float64 `yaml:"momentum"`
	MinCompletedTasks   int     `yaml:"min_completed_tasks"`
	MinTrainingExamples int     `yaml:"min_training_examples"`
	MaxParallelTenants  int     `yaml:"max_parallel_tenants"`
	AvgCompletionHours  float64 `yaml:"avg_completion_hours"`
}

func Load() *Config {
	training := DefaultTrainingConfig()
	if path := os.Getenv("TRAINING_CONFIG_FILE"); path != "" {
		if fileCfg, err := LoadTrainingFile(path); err == nil {
			training = fileCfg
		}
	}
	applyTrainingEnv(&training)

	return &Config{
		ServerHost:            getEnv("SERVER_HOST", "0.0.0.0"),
		FederatedServicePort:  getEnv("FEDERATED_SERVICE_PORT", "8090"),
		PredictionServicePort: getEnv("PREDICTION_SERVICE_PORT", "8091"),
		ReadTimeout:           getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:          getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody:        int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "taskmesh"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "taskmesh123"),
		PostgresDB:       getEnv("POSTGRES_DB", "taskmesh"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		ModelCacheTTL: getDuration("MODEL_CACHE_TTL", 5*time.Minute),

		KafkaBrokers:     getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "taskmesh-platform"),
		ModelEventsTopic: getEnv("MODEL_EVENTS_TOPIC", "model-events"),

		Training: training,
	}
}

func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		LearningRate:        0.01,
		Epochs:              100,
		Regularization:      0.01,
		ValidationSplit:     0.2,
		Momentum:            0.5,
		MinCompletedTasks:   10,
		MinTrainingExamples: 5,
		MaxParallelTenants:  4,
		AvgCompletionHours:  24,
	}
}

func applyTrainingEnv(t *TrainingConfig) {
	t.LearningRate = getFloatEnv("TRAINING_LEARNING_RATE", t.LearningRate)
	t.Epochs = getIntEnv("TRAINING_EPOCHS", t.Epochs)
	t.Regularization = getFloatEnv("TRAINING_REGULARIZATION", t.Regularization)
	t.ValidationSplit = getFloatEnv("TRAINING_VALIDATION_SPLIT", t.ValidationSplit)
	t.Momentum = getFloatEnv("FEDERATED_MOMENTUM", t.Momentum)
	t.MinCompletedTasks = getIntEnv("MIN_COMPLETED_TASKS", t.MinCompletedTasks)
	t.MinTrainingExamples = getIntEnv("MIN_TRAINING_EXAMPLES", t.MinTrainingExamples)
	t.MaxParallelTenants = getIntEnv("MAX_PARALLEL_TENANTS", t.MaxParallelTenants)
	t.AvgCompletionHours = getFloatEnv("AVG_COMPLETION_HOURS", t.AvgCompletionHours)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

package common

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvSamples          = "SAMPLES"
	EnvFeatures         = "FEATURES"
	EnvClasses          = "CLASSES"
	EnvOutputPath       = "OUTPUT_PATH"
	EnvSeed             = "SEED"
	EnvInformative      = "INFORMATIVE"
	EnvRedundant        = "REDUNDANT"
	EnvRepeated         = "REPEATED"
	EnvClustersPerClass = "CLUSTERS_PER_CLASS"
	EnvWeights          = "WEIGHTS"
	EnvFlipY            = "FLIP_Y"
	EnvClassSep         = "CLASS_SEP"
	EnvHypercube        = "HYPERCUBE"
	EnvShift            = "SHIFT"
	EnvScale            = "SCALE"
	EnvShuffle          = "SHUFFLE"
	EnvDataPath         = "DATA_PATH"
	EnvMetricsFile      = "METRICS_FILE"
	EnvLogLevel         = "LOG_LEVEL"
)

// Dataset defaults
const (
	DefaultSamples    = 1000
	DefaultFeatures   = 10
	DefaultClasses    = 2
	DefaultOutputPath = "data.txt"
)

// Generator defaults
const (
	DefaultInformative      = 2
	DefaultRedundant        = 2
	DefaultRepeated         = 0
	DefaultClustersPerClass = 2
	DefaultFlipY            = 0.01
	DefaultClassSep         = 1.0
	DefaultHypercube        = true
	DefaultShift            = 0.0
	DefaultScale            = 1.0
	DefaultShuffle          = true
	DefaultLogLevel         = "info"
)

// Validation constants
const (
	MaxSamples  = 10_000_000
	MaxFeatures = 100_000
	MaxClasses  = 10_000
)

// Output file format
const (
	FieldDelimiter = ','
	CatalogFile    = "classgen.db"
)

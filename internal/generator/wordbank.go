package generator

// wordBank is a small Faker-style vocabulary used to synthesize plausible
// prose without running a real language model. Words are deliberately
// generic so generated sentences read as filler text, never as an answer
// to the actual prompt.
var wordBank = []string{
	"system", "process", "data", "model", "value", "result", "function",
	"context", "request", "response", "signal", "vector", "matrix", "token",
	"cluster", "network", "pattern", "sequence", "feature", "sample",
	"distribution", "parameter", "gradient", "layer", "encoder", "decoder",
	"pipeline", "dataset", "metric", "latency", "throughput", "cache",
	"index", "worker", "queue", "stream", "buffer", "channel", "protocol",
	"interface", "module", "component", "service", "endpoint", "resource",
	"configuration", "environment", "variable", "constant", "expression",
	"algorithm", "heuristic", "strategy", "policy", "threshold", "weight",
	"bias", "embedding", "dimension", "tensor", "batch", "epoch", "iteration",
	"optimizer", "loss", "accuracy", "precision", "recall", "score",
	"baseline", "benchmark", "evaluation", "validation", "training",
	"inference", "deployment", "instance", "node", "cluster", "region",
	"availability", "redundancy", "failover", "balance", "capacity",
	"utilization", "allocation", "scheduling", "priority", "deadline",
	"constraint", "assumption", "hypothesis", "observation", "conclusion",
	"summary", "overview", "analysis", "insight", "perspective", "approach",
	"framework", "architecture", "structure", "hierarchy", "taxonomy",
	"category", "classification", "segmentation", "partition", "boundary",
	"surface", "gradient", "curvature", "topology", "manifold", "space",
}

// sentenceConnectors occasionally join clauses, matching the cadence of
// filler prose rather than a single run-on list of nouns.
var sentenceConnectors = []string{
	"and", "which", "while", "because", "although", "given that", "so",
	"therefore", "however", "meanwhile", "in turn", "as a result",
}

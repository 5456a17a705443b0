package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/modalvec/pkg/core"
	"github.com/liliang-cn/modalvec/pkg/encoders"
	"github.com/liliang-cn/modalvec/pkg/modalvec"
)

var (
	dbPath     string
	dimensions int
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "modalvec",
	Short: "CLI tool for multi-modal embeddings",
	Long:  `A command-line interface for generating, comparing and clustering multi-modal embeddings.`,
}

var embedCmd = &cobra.Command{
	Use:   "embed <content>",
	Short: "Generate an embedding for content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]

		modalityStr, _ := cmd.Flags().GetString("modality")
		modelName, _ := cmd.Flags().GetString("model")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		modality := core.Modality(modalityStr)
		content, err := parseContent(raw, modality)
		if err != nil {
			return err
		}

		sys, err := openSystem()
		if err != nil {
			return err
		}
		defer sys.Close()

		opts := &core.EmbedOptions{ModelName: modelName, NoCache: noCache}
		ctx := context.Background()
		result, err := sys.Embed(ctx, content, modality, opts)
		if err != nil {
			return fmt.Errorf("embedding failed: %w", err)
		}

		outputJSON, _ := cmd.Flags().GetBool("json")
		if outputJSON {
			data, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Printf("Model: %s\n", result.ModelName)
			fmt.Printf("Modality: %s\n", result.Modality)
			fmt.Printf("Dimensions: %d\n", len(result.Vector))
			fmt.Printf("Cache Hit: %v\n", result.CacheHit)
			fmt.Printf("Success: %v\n", result.Success)
			fmt.Printf("Confidence: %.4f\n", result.Confidence)
			fmt.Printf("Computation Time: %s\n", result.ComputationTime)
			if verbose {
				fmt.Printf("Vector: %v\n", result.Vector)
			}
		}
		return nil
	},
}

var similarityCmd = &cobra.Command{
	Use:   "similarity",
	Short: "Calculate similarity between two vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		vector1Str, _ := cmd.Flags().GetString("vector1")
		vector2Str, _ := cmd.Flags().GetString("vector2")
		metric, _ := cmd.Flags().GetString("metric")

		vector1, err := parseVector(vector1Str)
		if err != nil {
			return err
		}
		vector2, err := parseVector(vector2Str)
		if err != nil {
			return err
		}

		result, err := core.Similarity(vector1, vector2, core.SimilarityMetric(metric))
		if err != nil {
			return fmt.Errorf("similarity failed: %w", err)
		}

		fmt.Printf("Similarity (%s): %.6f\n", result.Metric, result.Score)
		if verbose {
			keys := make([]string, 0, len(result.Components))
			for k := range result.Components {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %s: %.6f\n", k, result.Components[k])
			}
			fmt.Printf("  confidence: %.4f\n", result.Confidence)
		}
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster <json-file>",
	Short: "Cluster vectors from a JSON file",
	Long:  `Reads a JSON array of float arrays and clusters them with the selected algorithm.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]
		algorithm, _ := cmd.Flags().GetString("algorithm")
		numClusters, _ := cmd.Flags().GetInt("clusters")
		eps, _ := cmd.Flags().GetFloat64("eps")
		minSamples, _ := cmd.Flags().GetInt("min-samples")

		vectors, err := readVectorsFile(filename)
		if err != nil {
			return err
		}

		opts := core.ClusterOptions{
			NumClusters: numClusters,
			Eps:         eps,
			MinSamples:  minSamples,
		}
		result, err := core.Cluster(vectors, core.ClusterAlgorithm(algorithm), opts, cliLogger())
		if err != nil {
			return fmt.Errorf("clustering failed: %w", err)
		}

		outputJSON, _ := cmd.Flags().GetBool("json")
		if outputJSON {
			data, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Printf("Algorithm: %s\n", result.Algorithm)
			fmt.Printf("Clusters: %d\n", len(result.Centroids))
			fmt.Printf("Silhouette: %.4f\n", result.Silhouette)
			fmt.Printf("Success: %v\n", result.Success)
			fmt.Printf("Labels: %v\n", result.Labels)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the embedding cache for similar vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStr, _ := cmd.Flags().GetString("vector")
		topK, _ := cmd.Flags().GetInt("top-k")

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		sys, err := openSystem()
		if err != nil {
			return err
		}
		defer sys.Close()

		results, err := sys.SearchCache(vector, topK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		fmt.Printf("Found %d results:\n", len(results))
		for i, result := range results {
			fmt.Printf("%d. %s (score: %.4f)\n", i+1, result.Key, result.Score)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display cache and model statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := openSystem()
		if err != nil {
			return err
		}
		defer sys.Close()

		stats := sys.CacheStats()

		outputJSON, _ := cmd.Flags().GetBool("json")
		if outputJSON {
			data, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Println("Cache Statistics:")
		fmt.Printf("  Entries: %d / %d\n", stats.Size, stats.MaxSize)
		fmt.Printf("  Hits: %d\n", stats.Hits)
		fmt.Printf("  Misses: %d\n", stats.Misses)
		fmt.Printf("  Hit Rate: %.2f%%\n", stats.HitRate*100)
		fmt.Printf("  Evictions: %d\n", stats.Evictions)
		fmt.Printf("  Expirations: %d\n", stats.Expirations)
		fmt.Printf("  Memory: %.2f KB\n", float64(stats.MemoryBytes)/1024)

		models := sys.Registry().Models()
		sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
		fmt.Printf("Models (%d):\n", len(models))
		for _, m := range models {
			fmt.Printf("  %s (modality: %s, dim: %d, weight: %.2f)\n", m.Name, m.Modality, m.Dimension, m.PerformanceWeight)
		}
		return nil
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run one adaptation pass over model and modality weights",
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := openSystem()
		if err != nil {
			return err
		}
		defer sys.Close()

		report := sys.Optimize()

		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}

// parseContent interprets the raw CLI argument for the target modality.
func parseContent(raw string, modality core.Modality) (any, error) {
	switch modality {
	case core.ModalityText:
		return raw, nil
	case core.ModalityNumerical:
		parts := strings.Split(raw, ",")
		values := make([]float64, 0, len(parts))
		for _, part := range parts {
			val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid numerical content: %w", err)
			}
			values = append(values, val)
		}
		return values, nil
	case core.ModalityCategorical, core.ModalityTemporal:
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, part := range parts {
			values = append(values, strings.TrimSpace(part))
		}
		return values, nil
	case core.ModalityStructured:
		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("invalid structured content: %w", err)
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("unknown modality: %s", modality)
	}
}

func parseVector(str string) ([]float32, error) {
	var vector []float32
	parts := strings.Split(str, ",")
	for _, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector format: %w", err)
		}
		vector = append(vector, float32(val))
	}
	return vector, nil
}

func readVectorsFile(filename string) ([][]float32, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var vectors [][]float32
	if err := json.Unmarshal(data, &vectors); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return vectors, nil
}

func cliLogger() core.Logger {
	if verbose {
		return core.NewStdLogger(core.LevelDebug)
	}
	return core.NopLogger()
}

func openSystem() (*modalvec.System, error) {
	config := modalvec.DefaultConfig()
	config.Path = dbPath
	if dimensions > 0 {
		config.Dimension = dimensions
	}
	config.Logger = cliLogger()

	sys, err := modalvec.Open(config, modalvec.WithEncoder(encoders.NewHash(config.Dimension)))
	if err != nil {
		return nil, fmt.Errorf("failed to open system: %w", err)
	}
	return sys, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "modalvec.db", "Snapshot database path (empty for in-memory only)")
	rootCmd.PersistentFlags().IntVarP(&dimensions, "dimensions", "n", 0, "Embedding dimensions (0 for default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Embed command
	embedCmd.Flags().String("modality", "text", "Content modality (text/numerical/categorical/temporal/structured)")
	embedCmd.Flags().String("model", "", "Model name (empty for automatic selection)")
	embedCmd.Flags().Bool("no-cache", false, "Bypass the embedding cache")
	embedCmd.Flags().Bool("json", false, "Output as JSON")

	// Similarity command
	similarityCmd.Flags().String("vector1", "", "First vector (comma-separated)")
	similarityCmd.Flags().String("vector2", "", "Second vector (comma-separated)")
	similarityCmd.Flags().String("metric", "cosine", "Similarity metric (cosine/euclidean/manhattan/pearson/combined)")
	similarityCmd.MarkFlagRequired("vector1")
	similarityCmd.MarkFlagRequired("vector2")

	// Cluster command
	clusterCmd.Flags().String("algorithm", "kmeans", "Clustering algorithm (kmeans/dbscan/agglomerative)")
	clusterCmd.Flags().Int("clusters", 0, "Number of clusters for kmeans (0 for default)")
	clusterCmd.Flags().Float64("eps", 0, "DBSCAN neighborhood radius (0 for default)")
	clusterCmd.Flags().Int("min-samples", 0, "DBSCAN minimum samples (0 for default)")
	clusterCmd.Flags().Bool("json", false, "Output as JSON")

	// Search command
	searchCmd.Flags().String("vector", "", "Query vector (comma-separated)")
	searchCmd.Flags().Int("top-k", 10, "Number of results")
	searchCmd.MarkFlagRequired("vector")

	// Stats command
	statsCmd.Flags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		embedCmd,
		similarityCmd,
		clusterCmd,
		searchCmd,
		statsCmd,
		optimizeCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

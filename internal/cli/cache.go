package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command group, operating on the
// content-addressed on-disk cache described in spec §4.I: one directory
// per cache key under Cache.Root, holding a per-session-hash_root zip
// archive plus an index archive.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the session cache",
	Long: `The cache command inspects and clears the content-addressed cache
that stores unchanged sessions' recorded output between runs.

Available commands:
  info   - Show the cache root and per-document cache key directories
  clean  - Remove cached entries`,
}

var cacheCleanKey string

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the cache location and its cache key directories",
	RunE:  runCacheInfo,
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cached entries",
	Long: `clean removes the whole cache root, or -- with --key -- only the
entries for one document's cache key.`,
	RunE: runCacheClean,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheCleanCmd)

	cacheCleanCmd.Flags().StringVar(&cacheCleanKey, "key", "", "remove only this cache key's directory instead of the whole cache root")
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	root := cfg.Cache.Root
	fmt.Fprintf(cmd.OutOrStdout(), "Cache Root: %s\n", root)

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty (no root directory yet)")
			return nil
		}
		return fmt.Errorf("reading cache root: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache Keys: %d\n", len(keys))
	for _, k := range keys {
		size, fileCount, err := dirStats(filepath.Join(root, k))
		if err != nil {
			return fmt.Errorf("inspecting cache key %q: %w", k, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %6d files  %8.2f KB\n", k, fileCount, float64(size)/1024)
	}
	return nil
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	root := cfg.Cache.Root
	target := root
	if cacheCleanKey != "" {
		target = filepath.Join(root, cacheCleanKey)
	}

	if _, err := os.Stat(target); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing to clean at %s\n", target)
		return nil
	}

	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("removing %s: %w", target, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", target)
	return nil
}

// dirStats sums file sizes and counts regular files under dir, without
// following symlinks out of the cache tree.
func dirStats(dir string) (size int64, fileCount int, err error) {
	err = filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		size += info.Size()
		fileCount++
		return nil
	})
	return size, fileCount, err
}

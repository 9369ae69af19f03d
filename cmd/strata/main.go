// Runs a single command against a two-level string cache: an in-memory LRU tier in front of an LRU tier persisted in
// the data directory. The persisted tier, along with its recency order, is picked up again by the next run.
//
//	strata [flags] put <key> <value> | get <key> | delete <key> | clear | size | recency

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/jmgilman/go/errors"
	"github.com/nobletooth/strata/pkg/builder"
	"github.com/nobletooth/strata/pkg/cache"
	"github.com/nobletooth/strata/pkg/config"
	"github.com/nobletooth/strata/pkg/storage"
	"github.com/nobletooth/strata/pkg/utils"
)

var (
	printVersion      = flag.Bool("print_version", false, "Print the version and exit.")
	dataDir           = flag.String("data_dir", "strata-data", "Directory holding the persisted cache tier.")
	l1MaxEntries      = flag.Int("l1_max_entries", 128, "Capacity of the in-memory tier.")
	l1Eviction        = flag.String("l1_eviction", "lru", "Eviction policy of the in-memory tier: none/lru/lfu.")
	l2MaxEntries      = flag.Int("l2_max_entries", 1024, "Capacity of the persisted tier.")
	l2Eviction        = flag.String("l2_eviction", "lru", "Eviction policy of the persisted tier: none/lru/lfu.")
	compress          = flag.Bool("compress", false, "Compress the persisted tier files with zstd.")
	bloomExpectedKeys = flag.Uint("bloom_expected_keys", 0,
		"Keeps a bloom filter of the persisted keys sized for this many keys; disabled when zero.")
)

// errUsage is returned for malformed commands.
var errUsage = errors.New(errors.CodeInvalidInput,
	"usage: strata [flags] put <key> <value> | get <key> | delete <key> | clear | size | recency")

// buildCache builds the two-level cache described by the flags.
func buildCache() (*cache.TwoLevelCache[string, string], error) {
	level1Eviction, err := cache.ParseEvictionType(*l1Eviction)
	if err != nil {
		return nil, err
	}
	level2Eviction, err := cache.ParseEvictionType(*l2Eviction)
	if err != nil {
		return nil, err
	}
	options := []storage.FileStoreOption{storage.WithReuseExisting()}
	if *compress {
		options = append(options, storage.WithCompression())
	}
	if *bloomExpectedKeys > 0 {
		options = append(options, storage.WithBloomFilter(*bloomExpectedKeys, 0.01 /*falsePositiveRate*/))
	}
	return builder.BuildTwoLevel[string, string](builder.NewTwoLevel().
		WithLevel1Eviction(*l1MaxEntries, level1Eviction).
		WithLevel2Eviction(*l2MaxEntries, level2Eviction).
		WithLevel2Dir(*dataDir).
		WithLevel2Options(options...))
}

// slowTierRecency returns the recency order of the persisted tier, if it is LRU bounded.
func slowTierRecency(twoLevel *cache.TwoLevelCache[string, string]) ([]string, error) {
	if evictable, ok := twoLevel.Slow().(*cache.EvictableCache[string, string]); ok {
		if lru, ok := evictable.Strategy().(*cache.LRU[string, string]); ok {
			return lru.Recency(), nil
		}
	}
	return nil, errors.New(errors.CodeInvalidInput, "the persisted tier is not bounded by lru")
}

// run executes the command in args and writes its result to out.
func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	command, args := args[0], args[1:]
	expectArgs := map[string]int{"put": 2, "get": 1, "delete": 1, "clear": 0, "size": 0, "recency": 0}
	wantArgs, known := expectArgs[command]
	if !known || len(args) != wantArgs {
		return errors.WithContext(errUsage, "command", command)
	}

	twoLevel, err := buildCache()
	if err != nil {
		return err
	}
	switch command {
	case "put":
		err = twoLevel.Put(args[0], args[1])
	case "get":
		var value string
		var found bool
		if value, found, err = twoLevel.Get(args[0]); err == nil {
			if !found {
				value = "(nil)"
			}
			_, err = fmt.Fprintln(out, value)
		}
	case "delete":
		err = twoLevel.Delete(args[0])
	case "clear":
		err = twoLevel.DeleteAll()
	case "size":
		var size int
		if size, err = twoLevel.Size(); err == nil {
			_, err = fmt.Fprintln(out, strconv.Itoa(size))
		}
	case "recency":
		var recency []string
		if recency, err = slowTierRecency(twoLevel); err == nil {
			for _, key := range recency {
				if _, err = fmt.Fprintln(out, key); err != nil {
					break
				}
			}
		}
	}
	if err != nil {
		return err
	}
	slog.Debug("Command done.", "command", command, "dataDir", *dataDir)
	return nil
}

func main() {
	config.InitFlags()
	utils.InitLogging()

	if *printVersion {
		slog.Info("Strata build info.", utils.BuildInfo()...)
		return
	}

	if err := run(flag.Args(), os.Stdout); err != nil {
		slog.Error("Strata command failed.", "error", err)
		os.Exit(1)
	}
}

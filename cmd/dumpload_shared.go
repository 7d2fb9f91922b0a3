package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/options"

	// Every storage backend registers itself with internal/storage via an
	// init func; blank-import them all here so storage.Open recognizes
	// every scheme before any dump/load command runs.
	_ "github.com/DevSingh98/mysql-shell/internal/storage/azureblob"
	_ "github.com/DevSingh98/mysql-shell/internal/storage/file"
	_ "github.com/DevSingh98/mysql-shell/internal/storage/httpx"
	_ "github.com/DevSingh98/mysql-shell/internal/storage/oci"
	_ "github.com/DevSingh98/mysql-shell/internal/storage/s3"
)

func connectionConfigFromFlags() mysql.ConnectionConfig {
	cfg := mysql.ConnectionConfig{
		Host:     viper.GetString("host"),
		Port:     viper.GetInt("port"),
		User:     viper.GetString("user"),
		Password: viper.GetString("password"),
		Database: viper.GetString("database"),
		Socket:   viper.GetString("socket"),
	}
	if cfg.Host == "" && cfg.Socket == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Password == "" {
		cfg.Password = mysql.PromptPassword()
	}
	return cfg
}

func compatibilityFlagsFromStrings(raw []string) []options.CompatibilityFlag {
	if len(raw) == 0 {
		return nil
	}
	out := make([]options.CompatibilityFlag, len(raw))
	for i, s := range raw {
		out[i] = options.CompatibilityFlag(s)
	}
	return out
}

func addDumpFlags(c *cobra.Command) {
	c.Flags().Int("threads", 4, "number of parallel dump worker threads")
	c.Flags().String("bytes-per-chunk", "64M", "target size per data chunk file")
	c.Flags().String("max-rate", "0", "maximum aggregate read throughput, 0 = unlimited")
	c.Flags().Bool("chunking", true, "split table data into multiple chunk files")
	c.Flags().StringSlice("exclude-schemas", nil, "skip these schemas even if otherwise in scope")
	c.Flags().String("compression", "none", "chunk compression codec: none, gzip, zstd")
	c.Flags().Bool("consistent", true, "take a consistent snapshot across all dumped tables")
	c.Flags().Bool("skip-consistency-checks", false, "skip the post-snapshot GTID consistency check")
	c.Flags().Bool("ddl-only", false, "dump only DDL, no table data")
	c.Flags().Bool("data-only", false, "dump only table data, no DDL")
	c.Flags().StringSlice("include-tables", nil, "only dump these tables (schema.table)")
	c.Flags().StringSlice("exclude-tables", nil, "skip these tables (schema.table)")
	c.Flags().StringSlice("include-users", nil, "only dump these accounts ('user'@'host')")
	c.Flags().StringSlice("exclude-users", nil, "skip these accounts ('user'@'host')")
	c.Flags().Bool("users", true, "dump user accounts and their grants")
	c.Flags().String("dialect", "default", "data file field/line format: default, csv, tsv, csv-unix")
	c.Flags().Bool("tz-utc", true, "shift TIMESTAMP values to UTC before writing")
	c.Flags().Bool("ocimds", false, "enforce OCI MySQL Database Service compatibility")
	c.Flags().StringSlice("compatibility", nil, "DDL rewrite flags, e.g. force_innodb,strip_definers")
	c.Flags().String("character-set", "", "session character set for the dump connection")
	c.Flags().Bool("show-progress", true, "accepted but not applied; the dump always writes its progress log")
	c.Flags().String("progress-file", "", "progress log path (default: load-progress.json)")
	c.Flags().String("os-bucket-name", "", "OCI Object Storage bucket for PAR manifest mode")
	c.Flags().Bool("oci-par-manifest", false, "publish pre-authenticated request URLs in the manifest")
	c.Flags().Duration("oci-par-expire-time", 7*24*time.Hour, "PAR expiration, relative to dump end")
	c.Flags().Bool("dry-run", false, "validate options and preconditions without writing any artifact")
}

func dumpOptionsFromFlags(c *cobra.Command, outputURL string) *options.DumpOptions {
	f := c.Flags()
	threads, _ := f.GetInt("threads")
	bytesPerChunk, _ := f.GetString("bytes-per-chunk")
	maxRate, _ := f.GetString("max-rate")
	chunking, _ := f.GetBool("chunking")
	excludeSchemas, _ := f.GetStringSlice("exclude-schemas")
	compression, _ := f.GetString("compression")
	consistent, _ := f.GetBool("consistent")
	skipConsistency, _ := f.GetBool("skip-consistency-checks")
	ddlOnly, _ := f.GetBool("ddl-only")
	dataOnly, _ := f.GetBool("data-only")
	includeTables, _ := f.GetStringSlice("include-tables")
	excludeTables, _ := f.GetStringSlice("exclude-tables")
	includeUsers, _ := f.GetStringSlice("include-users")
	excludeUsers, _ := f.GetStringSlice("exclude-users")
	users, _ := f.GetBool("users")
	dialect, _ := f.GetString("dialect")
	tzUtc, _ := f.GetBool("tz-utc")
	ocimds, _ := f.GetBool("ocimds")
	compat, _ := f.GetStringSlice("compatibility")
	charset, _ := f.GetString("character-set")
	progressFile, _ := f.GetString("progress-file")
	osBucket, _ := f.GetString("os-bucket-name")
	parManifest, _ := f.GetBool("oci-par-manifest")
	parExpire, _ := f.GetDuration("oci-par-expire-time")
	dryRun, _ := f.GetBool("dry-run")

	return &options.DumpOptions{
		OutputURL:             outputURL,
		Threads:               threads,
		BytesPerChunk:         bytesPerChunk,
		MaxRate:               maxRate,
		Chunking:              chunking,
		ExcludeSchemas:        excludeSchemas,
		Compression:           compression,
		Consistent:            consistent,
		SkipConsistencyChecks: skipConsistency,
		DDLOnly:               ddlOnly,
		DataOnly:              dataOnly,
		IncludeTables:         includeTables,
		ExcludeTables:         excludeTables,
		IncludeUsers:          includeUsers,
		ExcludeUsers:          excludeUsers,
		Users:                 users,
		Dialect:               options.Dialect{Name: dialect},
		TzUtc:                 tzUtc,
		Ocimds:                ocimds,
		Compatibility:         compatibilityFlagsFromStrings(compat),
		CharacterSet:          charset,
		ProgressFile:          progressFile,
		OsBucketName:          osBucket,
		OciParManifest:        parManifest,
		OciParExpireTime:      parExpire,
		DryRun:                dryRun,
	}
}

func addLoadFlags(c *cobra.Command) {
	c.Flags().Int("threads", 4, "number of parallel load worker threads")
	c.Flags().Int("background-threads", 4, "additional connections opened in the load session pool beyond --threads")
	c.Flags().StringSlice("exclude-schemas", nil, "skip these schemas even if present in the dump")
	c.Flags().StringSlice("include-tables", nil, "only load these tables (schema.table)")
	c.Flags().StringSlice("exclude-tables", nil, "skip these tables (schema.table)")
	c.Flags().Bool("load-ddl", true, "apply DDL from the dump")
	c.Flags().Bool("load-data", true, "load table data from the dump")
	c.Flags().Bool("load-users", true, "recreate user accounts and grants")
	c.Flags().String("defer-table-indexes", "off", "secondary index deferral mode: off, fulltext, all (validated only; indexes are created with their tables)")
	c.Flags().String("max-bytes-per-transaction", "", "bytes per LOAD DATA transaction (validated only; each chunk is loaded in one statement)")
	c.Flags().String("handle-grant-errors", "abort", "policy on a failed GRANT/CREATE USER: abort, drop_account, ignore")
	c.Flags().Duration("wait-dump-timeout", 0, "wait for a concurrently-running dump to finish writing")
	c.Flags().Bool("reset-progress", false, "ignore any existing progress log and restart from the beginning")
	c.Flags().String("progress-file", "", "progress log path (default: load-progress.json)")
	c.Flags().String("character-set", "", "session character set for the load connection")
	c.Flags().Bool("ocimds", false, "require the dump to have been produced with --ocimds")
}

func loadOptionsFromFlags(c *cobra.Command, sourceURL string) *options.LoadOptions {
	f := c.Flags()
	threads, _ := f.GetInt("threads")
	bgThreads, _ := f.GetInt("background-threads")
	excludeSchemas, _ := f.GetStringSlice("exclude-schemas")
	includeTables, _ := f.GetStringSlice("include-tables")
	excludeTables, _ := f.GetStringSlice("exclude-tables")
	loadDDL, _ := f.GetBool("load-ddl")
	loadData, _ := f.GetBool("load-data")
	loadUsers, _ := f.GetBool("load-users")
	deferIdx, _ := f.GetString("defer-table-indexes")
	maxBytesPerTx, _ := f.GetString("max-bytes-per-transaction")
	grantPolicy, _ := f.GetString("handle-grant-errors")
	waitTimeout, _ := f.GetDuration("wait-dump-timeout")
	resetProgress, _ := f.GetBool("reset-progress")
	progressFile, _ := f.GetString("progress-file")
	charset, _ := f.GetString("character-set")
	ocimds, _ := f.GetBool("ocimds")

	return &options.LoadOptions{
		SourceURL:              sourceURL,
		Threads:                threads,
		BackgroundThreads:      bgThreads,
		ExcludeSchemas:         excludeSchemas,
		IncludeTables:          includeTables,
		ExcludeTables:          excludeTables,
		LoadDDL:                loadDDL,
		LoadData:               loadData,
		LoadUsers:              loadUsers,
		DeferTableIndexes:      options.DeferIndexMode(deferIdx),
		MaxBytesPerTransaction: maxBytesPerTx,
		HandleGrantErrors:      options.GrantErrorPolicy(grantPolicy),
		WaitDumpTimeout:        waitTimeout,
		ResetProgress:          resetProgress,
		ProgressFile:           progressFile,
		CharacterSet:           charset,
		Ocimds:                 ocimds,
	}
}

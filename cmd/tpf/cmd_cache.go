package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tasoctpf/cmd/tpf/ui"
)

var (
	cacheClearFiles bool
	cacheWorkers    int
)

// cacheCmd groups product cache maintenance
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local product cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached archive products",
	RunE:  runCacheLs,
}

var cacheVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-hash cached products against their recorded checksums",
	RunE:  runCacheVerify,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the cache index",
	RunE:  runCacheClear,
}

func init() {
	cacheClearCmd.Flags().BoolVar(&cacheClearFiles, "files", false, "also delete the cached product files")
	cacheVerifyCmd.Flags().IntVar(&cacheWorkers, "workers", 4, "files hashed concurrently")
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheVerifyCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheLs(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("cache is disabled in config")
	}
	defer store.Close()

	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("cache is empty")
		return nil
	}

	table := ui.NewSimpleTable(fmt.Sprintf("Cached products (%s)", store.Dir()),
		[]string{"Service", "Target", "Sector", "File", "Size", "Fetched"})
	for _, e := range entries {
		table.AddRow(
			e.Service,
			e.Target,
			strconv.Itoa(e.Sector),
			e.Filename,
			fmt.Sprintf("%d", e.Size),
			e.FetchedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Println(table.View(ui.DefaultStyles()))
	return nil
}

func runCacheVerify(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("cache is disabled in config")
	}
	defer store.Close()

	results, err := store.Verify(cmd.Context(), cacheWorkers)
	if err != nil {
		return err
	}

	bad := 0
	for _, r := range results {
		if r.OK {
			continue
		}
		bad++
		if r.Err != nil {
			fmt.Printf("FAIL %s: %v\n", r.Entry.Path, r.Err)
		} else {
			fmt.Printf("FAIL %s: checksum mismatch\n", r.Entry.Path)
		}
	}
	fmt.Printf("%d/%d cached products verified\n", len(results)-bad, len(results))
	if bad > 0 {
		return fmt.Errorf("%d corrupt or missing cached product(s); clear and re-fetch", bad)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("cache is disabled in config")
	}
	defer store.Close()

	if err := store.Clear(cacheClearFiles); err != nil {
		return err
	}
	if cacheClearFiles {
		fmt.Println("cache index and files cleared")
	} else {
		fmt.Println("cache index cleared (files kept)")
	}
	return nil
}

package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/franz/sample-organizer/internal/store"
	"github.com/franz/sample-organizer/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show detected packs, duplicate groups, and the planned operations",
	Long: `Display the state recorded in the database so far.

Shows, depending on flags:
- Every pack detected by the pack detector, with its type and confidence
- Duplicate groups and how much space they waste
- Fusion groups (split packs recombined before planning)
- The planned operations: unwrap/clean/fuse/move, source -> target, status

Use this to review a run's results before or after 'organizer run'.`,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("duplicates-only", false, "show only duplicate groups")
	showCmd.Flags().Bool("operations-only", false, "show only planned operations")
	showCmd.Flags().Bool("verbose", false, "show detailed pack and operation info")
	showCmd.Flags().Bool("tree", false, "show the planned destination structure as a tree")
	showCmd.Flags().IntP("depth", "L", 0, "limit tree depth (0 = unlimited, only with --tree)")
}

func runShow(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("db")
	duplicatesOnly, _ := cmd.Flags().GetBool("duplicates-only")
	operationsOnly, _ := cmd.Flags().GetBool("operations-only")
	verbose, _ := cmd.Flags().GetBool("verbose")
	showTree, _ := cmd.Flags().GetBool("tree")
	treeDepth, _ := cmd.Flags().GetInt("depth")

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	packs, err := db.GetAllPacks()
	if err != nil {
		return fmt.Errorf("failed to get packs: %w", err)
	}
	if len(packs) == 0 {
		util.WarnLog("No packs found. Run 'organizer run' first.")
		return nil
	}

	if showTree {
		return showDestinationTree(db, treeDepth)
	}

	util.InfoLog("=== Organizer State ===")
	util.InfoLog("Database: %s", dbPath)
	util.InfoLog("")

	if !operationsOnly {
		if err := showPacksAndDuplicates(db, packs, duplicatesOnly, verbose); err != nil {
			return err
		}
	}

	if !duplicatesOnly {
		if err := showOperations(db, verbose); err != nil {
			return err
		}
	}

	return nil
}

func showPacksAndDuplicates(db *store.Store, packs []*store.PackRow, duplicatesOnly, verbose bool) error {
	if !duplicatesOnly {
		util.InfoLog("Packs: %d", len(packs))
		byType := map[string]int{}
		for _, p := range packs {
			byType[p.PackType]++
		}
		for _, t := range sortedKeys(byType) {
			util.InfoLog("  %-10s %d", t, byType[t])
		}
		fmt.Println()

		if verbose {
			for _, p := range packs {
				util.InfoLog("  %s  [%s, confidence %.2f, %s]", p.Name, p.PackType, p.Confidence, humanize.Bytes(uint64(p.TotalSize)))
				util.InfoLog("     %s", p.SourcePath)
			}
			fmt.Println()
		}
	}

	groups, err := db.GetAllDuplicateGroups()
	if err != nil {
		return fmt.Errorf("failed to get duplicate groups: %w", err)
	}
	if len(groups) == 0 {
		return nil
	}

	util.WarnLog("Duplicate groups: %d", len(groups))
	for _, g := range groups {
		files, err := db.GetDuplicateGroupFiles(g.Signature)
		if err != nil {
			util.ErrorLog("failed to get files for group %s: %v", g.Signature, err)
			continue
		}
		util.InfoLog("  %s  strategy=%s wasted=%s", g.Signature, g.Strategy, humanize.Bytes(uint64(g.WastedBytes)))
		for _, f := range files {
			fmt.Printf("     %s  (%s)\n", f.FilePath, humanize.Bytes(uint64(f.SizeBytes)))
		}
	}
	fmt.Println()

	fusionGroups, err := db.GetAllFusionGroups()
	if err != nil {
		return fmt.Errorf("failed to get fusion groups: %w", err)
	}
	if len(fusionGroups) > 0 {
		util.InfoLog("Fusion groups: %d", len(fusionGroups))
		for _, g := range fusionGroups {
			members, _ := db.GetFusionGroupMembers(g.ID)
			util.InfoLog("  %s  strategy=%s members=%d", g.CanonicalName, g.MergeStrategy, len(members))
		}
		fmt.Println()
	}

	return nil
}

func showOperations(db *store.Store, verbose bool) error {
	ops, err := db.GetOperationsByPlan()
	if err != nil {
		return fmt.Errorf("failed to get operations: %w", err)
	}
	if len(ops) == 0 {
		util.WarnLog("No operations planned yet.")
		return nil
	}

	byType := map[string]int{}
	byStatus := map[string]int{}
	for _, op := range ops {
		byType[op.OpType]++
		byStatus[op.Status]++
	}

	util.InfoLog("Operations: %d", len(ops))
	for _, t := range sortedKeys(byType) {
		util.InfoLog("  %-10s %d", t, byType[t])
	}
	fmt.Println()
	for _, s := range sortedKeys(byStatus) {
		util.InfoLog("  status=%-10s %d", s, byStatus[s])
	}
	fmt.Println()

	if verbose {
		for _, op := range ops {
			marker := "→"
			switch op.Status {
			case "done":
				marker = "✓"
			case "failed":
				marker = "✗"
			}
			fmt.Printf("  %s [%s] %s\n", marker, op.OpType, filepath.Base(op.SourcePath))
			fmt.Printf("     %s -> %s\n", op.SourcePath, op.TargetPath)
			if op.Rationale != "" {
				fmt.Printf("     reason: %s\n", op.Rationale)
			}
			if op.Error != "" {
				fmt.Printf("     error:  %s\n", op.Error)
			}
		}
		fmt.Println()
	}

	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// showDestinationTree renders the planned destination layout as a tree,
// built from every operation's target path.
func showDestinationTree(db *store.Store, maxDepth int) error {
	ops, err := db.GetOperationsByPlan()
	if err != nil {
		return fmt.Errorf("failed to get operations: %w", err)
	}
	if len(ops) == 0 {
		util.WarnLog("No operations planned yet.")
		return nil
	}

	tree := buildTree(ops, maxDepth)
	output := generateTreeOutput(tree)
	fmt.Print(output)
	return nil
}

// TreeNode represents a node in the destination folder tree.
type TreeNode struct {
	Name     string
	IsDir    bool
	Children map[string]*TreeNode
}

// buildTree builds a tree structure from planned operations' target paths.
func buildTree(ops []*store.OperationRow, maxDepth int) *TreeNode {
	root := &TreeNode{
		Name:     ".",
		IsDir:    true,
		Children: make(map[string]*TreeNode),
	}

	for _, op := range ops {
		if op.TargetPath == "" {
			continue
		}

		parts := strings.Split(filepath.Clean(op.TargetPath), string(filepath.Separator))
		if maxDepth > 0 && len(parts) > maxDepth {
			parts = parts[:maxDepth]
		}

		current := root
		for i, part := range parts {
			if part == "" || part == "." {
				continue
			}

			isLastPart := i == len(parts)-1
			isFile := isLastPart

			if _, exists := current.Children[part]; !exists {
				current.Children[part] = &TreeNode{
					Name:     part,
					IsDir:    !isFile,
					Children: make(map[string]*TreeNode),
				}
			}

			if !isFile {
				current = current.Children[part]
			}
		}
	}

	return root
}

func generateTreeOutput(node *TreeNode) string {
	var sb strings.Builder
	sb.WriteString(".\n")
	generateTreeLines(node, "", &sb)

	stats := calculateStats(node)
	sb.WriteString(fmt.Sprintf("\n%d directories, %d files\n", stats.dirs, stats.files))

	return sb.String()
}

func generateTreeLines(node *TreeNode, prefix string, sb *strings.Builder) {
	if node.Name == "." {
		children := getSortedChildren(node)
		for _, child := range children {
			generateTreeLines(child, "", sb)
		}
		return
	}

	sb.WriteString(prefix)
	sb.WriteString(node.Name)
	if node.IsDir {
		sb.WriteString("/")
	}
	sb.WriteString("\n")

	if node.IsDir && len(node.Children) > 0 {
		children := getSortedChildren(node)
		newPrefix := prefix + "  "
		for _, child := range children {
			generateTreeLines(child, newPrefix, sb)
		}
	}
}

func getSortedChildren(node *TreeNode) []*TreeNode {
	children := make([]*TreeNode, 0, len(node.Children))
	for _, child := range node.Children {
		children = append(children, child)
	}

	sort.Slice(children, func(i, j int) bool {
		if children[i].IsDir != children[j].IsDir {
			return children[i].IsDir
		}
		return strings.ToLower(children[i].Name) < strings.ToLower(children[j].Name)
	})

	return children
}

type treeStats struct {
	dirs  int
	files int
}

func calculateStats(node *TreeNode) treeStats {
	stats := treeStats{}

	if node.IsDir {
		stats.dirs++
		for _, child := range node.Children {
			childStats := calculateStats(child)
			stats.dirs += childStats.dirs
			stats.files += childStats.files
		}
	} else {
		stats.files++
	}

	return stats
}

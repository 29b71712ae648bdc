// Package style holds the static script scaffold, the ggplot style guide
// document, and the fixed-substitution style check over user code.
package style

import "strings"

// Scaffold is the template prepended to generated scripts.
const Scaffold = "\n"

type CheckResult struct {
	OriginalCode      string   `json:"original_code"`
	OptimizedCode     string   `json:"optimized_code"`
	Optimizations     []string `json:"optimizations"`
	StyleNotes        []string `json:"style_notes"`
	ImprovementsFound int      `json:"improvements_found"`
}

// Check analyzes plotting code against the style guide, applying a fixed
// set of substitutions and collecting advisory notes for what it cannot
// rewrite mechanically.
func Check(code string) *CheckResult {
	var optimizations []string
	optimized := code

	if strings.Contains(code, "<-") {
		optimizations = append(optimizations, "Replace '<-' with '=' for consistency")
		optimized = strings.ReplaceAll(optimized, "<-", "=")
	}

	switch {
	case strings.Contains(code, "theme_gray()") || strings.Contains(code, "theme_grey()"):
		optimizations = append(optimizations, "Replace theme_gray() with theme_minimal(base_size=14)")
		optimized = strings.ReplaceAll(optimized, "theme_gray()", "theme_minimal(base_size=14)")
		optimized = strings.ReplaceAll(optimized, "theme_grey()", "theme_minimal(base_size=14)")
	case !strings.Contains(code, "theme(") && strings.Contains(code, "ggplot("):
		optimizations = append(optimizations, "Add theme_minimal(base_size=14) for better aesthetics")
	}

	if strings.Contains(code, "ggsave(") {
		if !strings.Contains(code, "dpi=") {
			optimizations = append(optimizations, "Add dpi=800 to ggsave() for publication quality")
		}
		if !strings.Contains(code, "width=") || !strings.Contains(code, "height=") {
			optimizations = append(optimizations, "Specify width=5, height=4 in ggsave() for optimal dimensions")
		}
	} else if strings.Contains(code, "ggplot(") {
		optimizations = append(optimizations, "Add ggsave() with width=5, height=4, dpi=800")
	}

	if strings.Contains(code, "ggplot(") && strings.Contains(code, "color=") &&
		!strings.Contains(code, "scale_color") && !strings.Contains(code, "scale_colour") {
		optimizations = append(optimizations, "Add scale_color_brewer(palette='Set2') for better categorical colors")
	}

	if strings.Contains(code, "ggplot(") && strings.Contains(code, "fill=") && !strings.Contains(code, "scale_fill") {
		lower := strings.ToLower(code)
		if strings.Contains(lower, "continuous") || strings.Contains(lower, "numeric") {
			optimizations = append(optimizations, "Consider scale_fill_viridis_c() for continuous data")
		} else {
			optimizations = append(optimizations, "Add scale_fill_brewer(palette='Set2') for categorical data")
		}
	}

	if strings.Contains(code, "geom_point(") && !strings.Contains(code, "size=") {
		optimizations = append(optimizations, "Set size=2.5 in geom_point() for better visibility")
	}

	if strings.Contains(code, "geom_line(") &&
		!strings.Contains(code, "linewidth=") && !strings.Contains(code, "size=") {
		optimizations = append(optimizations, "Set linewidth=0.8 in geom_line() for better visibility")
	}

	result := &CheckResult{
		OriginalCode:      code,
		OptimizedCode:     code,
		Optimizations:     optimizations,
		ImprovementsFound: len(optimizations),
		StyleNotes: []string{
			"Following publication-ready ggplot2 best practices:",
			"- Muted color palettes (Set2, viridis)",
			"- Clear typography (base_size >= 14pt)",
			"- Optimal export dimensions (5x4 inches)",
			"- High resolution (dpi=800)",
		},
	}
	if len(optimizations) > 0 {
		result.OptimizedCode = optimized
	}
	return result
}

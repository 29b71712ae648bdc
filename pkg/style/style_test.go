package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_AssignmentOperator(t *testing.T) {
	result := Check("x <- 1\ny <- 2")

	assert.Equal(t, "x = 1\ny = 2", result.OptimizedCode)
	assert.Contains(t, result.Optimizations, "Replace '<-' with '=' for consistency")
	assert.Equal(t, len(result.Optimizations), result.ImprovementsFound)
}

func TestCheck_ThemeSubstitution(t *testing.T) {
	result := Check("p = ggplot(df) + theme_gray()")

	assert.Contains(t, result.OptimizedCode, "theme_minimal(base_size=14)")
	assert.NotContains(t, result.OptimizedCode, "theme_gray()")

	result = Check("p = ggplot(df) + theme_grey()")
	assert.Contains(t, result.OptimizedCode, "theme_minimal(base_size=14)")
}

func TestCheck_MissingThemeAdvisory(t *testing.T) {
	result := Check("p = ggplot(df, aes(x, y))")

	assert.Contains(t, result.Optimizations, "Add theme_minimal(base_size=14) for better aesthetics")
}

func TestCheck_GGSaveAdvisories(t *testing.T) {
	result := Check(`ggsave("out.png", p)`)
	assert.Contains(t, result.Optimizations, "Add dpi=800 to ggsave() for publication quality")
	assert.Contains(t, result.Optimizations, "Specify width=5, height=4 in ggsave() for optimal dimensions")

	result = Check(`ggsave("out.png", p, width=5, height=4, dpi=800)`)
	assert.NotContains(t, result.Optimizations, "Add dpi=800 to ggsave() for publication quality")

	result = Check("p = ggplot(df)")
	assert.Contains(t, result.Optimizations, "Add ggsave() with width=5, height=4, dpi=800")
}

func TestCheck_ColorScaleAdvisories(t *testing.T) {
	result := Check("ggplot(df, aes(x, y, color=grp)) + geom_point(size=2.5)")
	assert.Contains(t, result.Optimizations, "Add scale_color_brewer(palette='Set2') for better categorical colors")

	result = Check("ggplot(df, aes(x, y, color=grp)) + scale_color_brewer()")
	assert.NotContains(t, result.Optimizations, "Add scale_color_brewer(palette='Set2') for better categorical colors")

	result = Check("ggplot(df, aes(x, fill=grp))")
	assert.Contains(t, result.Optimizations, "Add scale_fill_brewer(palette='Set2') for categorical data")

	result = Check("ggplot(df, aes(x, fill=level)) # continuous")
	assert.Contains(t, result.Optimizations, "Consider scale_fill_viridis_c() for continuous data")
}

func TestCheck_GeomAdvisories(t *testing.T) {
	result := Check("geom_point()")
	assert.Contains(t, result.Optimizations, "Set size=2.5 in geom_point() for better visibility")

	result = Check("geom_line()")
	assert.Contains(t, result.Optimizations, "Set linewidth=0.8 in geom_line() for better visibility")

	result = Check("geom_line(linewidth=0.8)")
	assert.NotContains(t, result.Optimizations, "Set linewidth=0.8 in geom_line() for better visibility")
}

func TestCheck_CleanCodeUnchanged(t *testing.T) {
	code := `library(ggplot2)
p = ggplot(df, aes(x, y)) + geom_point(size=2.5) + theme_minimal(base_size=14) + theme(plot.margin=margin(10,10,10,10))
ggsave("out.png", p, width=5, height=4, dpi=800)`

	result := Check(code)
	assert.Empty(t, result.Optimizations)
	assert.Equal(t, 0, result.ImprovementsFound)
	assert.Equal(t, code, result.OptimizedCode)
	assert.Equal(t, code, result.OriginalCode)
	assert.NotEmpty(t, result.StyleNotes)
}

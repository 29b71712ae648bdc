package style

// GGplotStyleGuide is the reference document served alongside style
// check results.
const GGplotStyleGuide = `
# ggplot Style Guide - One-Time Code Optimization

## Core Principles:
1. **Assignment**: Always use = instead of <-
2. **Theme**: Use theme_minimal() or theme_classic() with base_size=14
3. **Colors**: Muted palettes (Set2 for categorical, viridis for continuous)
4. **Dimensions**: Optimize for 5x4 inches (width x height)
5. **Typography**: Base size >= 14pt for readability
6. **Visibility**: Points >= 2.5, lines >= 0.8 width
7. **Export**: Always save with dpi=800

## Color Palette Guidelines:
### Categorical Data:
- Set2, Set3, Pastel1, Pastel2, Dark2 (RColorBrewer)
- Avoid default ggplot2 colors

### Continuous Data:
- viridis, magma, plasma, inferno, cividis
- Colorblind-friendly by default

### Diverging Data:
- RdBu, RdYlBu, Spectral, PuOr, BrBG
- Center at meaningful value

## Code Optimization Example:
` + "```r" + `
# Good practice - optimized code
library(ggplot2)

# Use = for assignments
data = read.csv("data.csv")

# Build plot with optimal settings
p = ggplot(data, aes(x=x_var, y=y_var, color=group)) +
  geom_point(size=2.5, alpha=0.8) +
  geom_line(linewidth=0.8) +
  scale_color_brewer(palette="Set2") +  # Muted categorical colors
  theme_minimal(base_size=14) +
  labs(x="Clear X Label",
       y="Clear Y Label",
       title="Concise Title") +
  theme(plot.margin=margin(10,10,10,10))

# Save with optimal dimensions and quality
ggsave("plot.png", p, width=5, height=4, dpi=800)
` + "```" + `

## Automatic Optimizations:
- Replace theme_gray() -> theme_minimal(base_size=14)
- Convert <- to = throughout
- Add color scales if missing (no defaults)
- Optimize dimensions to 5x4 inches
- Ensure dpi=800 for all exports
- Humanize variable names in labels
`

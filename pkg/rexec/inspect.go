package rexec

import (
	"fmt"
	"strconv"
	"strings"
)

// inspectProgram generates the R program that loads the workspace
// snapshot and prints, for each selected object, its class, storage
// type, dimensions or length, a bounded structural dump, and a summary
// for data frames.
func inspectProgram(objects []string, maxLevel int) string {
	var b strings.Builder

	b.WriteString("load(\".RData\")\n")
	b.WriteString("all_objects <- ls()\n")

	if len(objects) > 0 {
		quoted := make([]string, len(objects))
		for i, name := range objects {
			quoted[i] = strconv.Quote(name)
		}
		fmt.Fprintf(&b, "requested_objects <- c(%s)\n", strings.Join(quoted, ", "))
		b.WriteString(`missing <- setdiff(requested_objects, all_objects)
if (length(missing) > 0) {
  cat("Warning: Objects not found:", paste(missing, collapse=", "), "\n")
}
objects_to_inspect <- intersect(requested_objects, all_objects)
`)
	} else {
		b.WriteString("objects_to_inspect <- all_objects\n")
	}

	fmt.Fprintf(&b, `for (obj_name in objects_to_inspect) {
  cat("\n=== Object:", obj_name, "===\n")
  obj <- get(obj_name)
  cat("Class:", paste(class(obj), collapse=", "), "\n")
  cat("Type:", typeof(obj), "\n")
  if (is.data.frame(obj) || is.matrix(obj)) {
    cat("Dimensions:", nrow(obj), "x", ncol(obj), "\n")
  } else if (is.list(obj)) {
    cat("Length:", length(obj), "\n")
  } else if (is.vector(obj)) {
    cat("Length:", length(obj), "\n")
  }
  cat("\nStructure:\n")
  str(obj, max.level=%d)
  if (is.data.frame(obj)) {
    cat("\nSummary:\n")
    print(summary(obj))
  }
  if (is.vector(obj) && !is.list(obj) && length(obj) > 0) {
    cat("\nFirst elements:\n")
    print(head(obj, 10))
  }
}
`, maxLevel)

	return b.String()
}

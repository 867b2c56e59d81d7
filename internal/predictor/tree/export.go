package tree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type Format string

const (
	FormatText Format = "text"
	FormatDOT  Format = "dot"
)

// Names resolves indexes to display names for diagrams.
type Names struct {
	Features []string
	Classes  []string
}

func (n Names) feature(i int32) string {
	if int(i) < len(n.Features) && n.Features[i] != "" {
		return n.Features[i]
	}
	return "x" + strconv.Itoa(int(i))
}

func (n Names) class(i int32) string {
	if int(i) < len(n.Classes) && n.Classes[i] != "" {
		return n.Classes[i]
	}
	return strconv.Itoa(int(i))
}

// Export writes a human readable diagram of the tree in the given format.
func (c *Classifier) Export(w io.Writer, format Format, names Names) error {
	if len(c.nodes) == 0 {
		return ErrNotFitted
	}
	bw := bufio.NewWriter(w)
	switch format {
	case FormatText, "":
		c.writeText(bw, 0, 0, names)
	case FormatDOT:
		c.writeDOT(bw, names)
	default:
		return fmt.Errorf("unknown diagram format: %q", format)
	}
	return bw.Flush()
}

func (c *Classifier) writeText(w *bufio.Writer, idx int32, depth int, names Names) {
	indent := strings.Repeat("|   ", depth)
	n := c.nodes[idx]
	if n.Leaf {
		fmt.Fprintf(w, "%s|--- class: %s (samples=%d)\n", indent, names.class(n.Class), n.Samples)
		return
	}
	threshold := strconv.FormatFloat(n.Threshold, 'g', 6, 64)
	fmt.Fprintf(w, "%s|--- %s <= %s\n", indent, names.feature(n.Feature), threshold)
	c.writeText(w, n.Left, depth+1, names)
	fmt.Fprintf(w, "%s|--- %s >  %s\n", indent, names.feature(n.Feature), threshold)
	c.writeText(w, n.Right, depth+1, names)
}

func (c *Classifier) writeDOT(w *bufio.Writer, names Names) {
	crit := string(c.params.Criterion)
	if crit == "" {
		crit = "impurity"
	}
	fmt.Fprintln(w, "digraph Tree {")
	fmt.Fprintln(w, `node [shape=box, fontname="helvetica"] ;`)
	for i, n := range c.nodes {
		var label string
		if n.Leaf {
			label = fmt.Sprintf(`%s = %.3f\nsamples = %d\nclass = %s`, crit, n.Impurity, n.Samples, names.class(n.Class))
		} else {
			label = fmt.Sprintf(`%s <= %s\n%s = %.3f\nsamples = %d\nclass = %s`,
				names.feature(n.Feature), strconv.FormatFloat(n.Threshold, 'g', 6, 64),
				crit, n.Impurity, n.Samples, names.class(n.Class))
		}
		fmt.Fprintf(w, "%d [label=\"%s\"] ;\n", i, strings.ReplaceAll(label, `"`, `\"`))
	}
	for i, n := range c.nodes {
		if n.Leaf {
			continue
		}
		fmt.Fprintf(w, "%d -> %d [headlabel=\"True\"] ;\n", i, n.Left)
		fmt.Fprintf(w, "%d -> %d [headlabel=\"False\"] ;\n", i, n.Right)
	}
	fmt.Fprintln(w, "}")
}

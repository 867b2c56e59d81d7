package train

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/go-sod/dtree/internal/predictor/tree"
)

type Config struct {
	DataPath   string `envconfig:"DTS_TRAIN_DATA_PATH" default:"/opt/ml/input/data/training/iris.csv"`
	OutputPath string `envconfig:"DTS_MODEL_OUTPUT_PATH" default:"/opt/ml/model/model.bin"`
	// Expected number of feature columns, 0 infers it from the first row
	FeatureCount int      `envconfig:"DTS_FEATURE_COUNT" default:"0"`
	FeatureNames []string `envconfig:"DTS_FEATURE_NAMES"`
	// Ordered label list; codes follow the order. Empty derives the sorted labels of the dataset
	Labels []string `envconfig:"DTS_LABELS"`
	// Share of rows held out for the diagnostic evaluation, 0 disables it
	TestRatio float64 `envconfig:"DTS_TEST_RATIO" default:"0.2"`
	SplitSeed uint32  `envconfig:"DTS_SPLIT_SEED" default:"42"`
	Tree      tree.Params
	// TOML file overriding Tree
	ParamsFile    string `envconfig:"DTS_TREE_PARAMS_FILE"`
	DiagramPath   string `envconfig:"DTS_DIAGRAM_PATH"`
	DiagramFormat string `envconfig:"DTS_DIAGRAM_FORMAT" default:"text"`
}

// TreeParams returns the hyperparameters with the params file, if any,
// applied on top of the environment values.
func (c *Config) TreeParams() (tree.Params, error) {
	params := c.Tree
	if c.ParamsFile != "" {
		md, err := toml.DecodeFile(c.ParamsFile, &params)
		if err != nil {
			return tree.Params{}, fmt.Errorf("decode params file %s: %w", c.ParamsFile, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return tree.Params{}, fmt.Errorf("unknown keys in params file %s: %v", c.ParamsFile, undecoded)
		}
	}
	if err := params.Validate(); err != nil {
		return tree.Params{}, fmt.Errorf("invalid tree params: %w", err)
	}
	return params, nil
}

func (c *Config) diagramFormat() (tree.Format, error) {
	switch f := tree.Format(c.DiagramFormat); f {
	case tree.FormatText, tree.FormatDOT:
		return f, nil
	case "":
		return tree.FormatText, nil
	default:
		return "", fmt.Errorf("unknown diagram format: %q", c.DiagramFormat)
	}
}

package predictor

type Config struct {
	Type AlgType `envconfig:"DTS_MODEL_TYPE" default:"DECISION_TREE"`
	// Artifact loaded once at startup
	Path string `envconfig:"DTS_MODEL_PATH" default:"/opt/ml/model/model.bin"`
}

func (c *Config) PredictorType() AlgType {
	return c.Type
}

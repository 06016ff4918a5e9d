package platform

import (
	"testing"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageURI(t *testing.T) {
	tests := []struct {
		name    string
		region  string
		version string
		want    string
	}{
		{"us-east-1", "us-east-1", "1.3-1", "683313688378.dkr.ecr.us-east-1.amazonaws.com/sagemaker-xgboost:1.3-1"},
		{"tokyo", "ap-northeast-1", "1.3-1", "354813040037.dkr.ecr.ap-northeast-1.amazonaws.com/sagemaker-xgboost:1.3-1"},
		{"china uses .cn domain", "cn-north-1", "1.5-1", "450853457545.dkr.ecr.cn-north-1.amazonaws.com.cn/sagemaker-xgboost:1.5-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ImageURI(FrameworkXGBoost, tt.region, tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImageURIErrors(t *testing.T) {
	tests := []struct {
		name      string
		framework string
		region    string
		version   string
		param     string
	}{
		{"unknown framework", "pytorch", "us-east-1", "1.3-1", "framework"},
		{"unknown version", FrameworkXGBoost, "us-east-1", "0.90-1", "framework_version"},
		{"unknown region", FrameworkXGBoost, "mars-north-1", "1.3-1", "region"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImageURI(tt.framework, tt.region, tt.version)
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.param, verr.ParamName)
		})
	}
}

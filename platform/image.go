package platform

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
)

// FrameworkXGBoost is the only framework whose images are resolved here.
const FrameworkXGBoost = "xgboost"

// xgboostAccounts maps a region to the ECR registry account publishing the
// sagemaker-xgboost images (versions 1.0-1 and later).
var xgboostAccounts = map[string]string{
	"af-south-1":     "510948584623",
	"ap-east-1":      "651117190479",
	"ap-northeast-1": "354813040037",
	"ap-northeast-2": "366743142698",
	"ap-northeast-3": "867004704886",
	"ap-south-1":     "720646828776",
	"ap-southeast-1": "121021644041",
	"ap-southeast-2": "783357654285",
	"ca-central-1":   "341280168497",
	"cn-north-1":     "450853457545",
	"cn-northwest-1": "451049120500",
	"eu-central-1":   "492215442770",
	"eu-north-1":     "662702820516",
	"eu-south-1":     "978288397137",
	"eu-west-1":      "141502667606",
	"eu-west-2":      "764974769150",
	"eu-west-3":      "659782779980",
	"me-south-1":     "801668240914",
	"sa-east-1":      "737474898029",
	"us-east-1":      "683313688378",
	"us-east-2":      "257758044811",
	"us-gov-west-1":  "414596584902",
	"us-west-1":      "746614075791",
	"us-west-2":      "246618743249",
}

var xgboostVersions = map[string]bool{
	"1.0-1": true,
	"1.2-1": true,
	"1.2-2": true,
	"1.3-1": true,
	"1.5-1": true,
	"1.7-1": true,
}

// ImageURI returns the ECR image for a framework version in a region, e.g.
// 683313688378.dkr.ecr.us-east-1.amazonaws.com/sagemaker-xgboost:1.3-1.
func ImageURI(framework, region, version string) (string, error) {
	if framework != FrameworkXGBoost {
		return "", errors.NewValidationError("framework", "only xgboost images are supported", framework)
	}
	if !xgboostVersions[version] {
		return "", errors.NewValidationError("framework_version", "unsupported xgboost version", version)
	}
	account, ok := xgboostAccounts[region]
	if !ok {
		return "", errors.NewValidationError("region", "no xgboost image published in region", region)
	}

	domain := "amazonaws.com"
	if strings.HasPrefix(region, "cn-") {
		domain = "amazonaws.com.cn"
	}
	return fmt.Sprintf("%s.dkr.ecr.%s.%s/sagemaker-xgboost:%s", account, region, domain, version), nil
}

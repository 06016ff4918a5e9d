package platform

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// CSVChannel returns a training input reading every object under the S3
// prefix uri as text/csv, replicated to each instance.
func CSVChannel(name, uri string) types.Channel {
	return types.Channel{
		ChannelName: aws.String(name),
		ContentType: aws.String("text/csv"),
		DataSource: &types.DataSource{
			S3DataSource: &types.S3DataSource{
				S3DataType:             types.S3DataTypeS3Prefix,
				S3Uri:                  aws.String(uri),
				S3DataDistributionType: types.S3DataDistributionFullyReplicated,
			},
		},
	}
}

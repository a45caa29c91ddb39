package main // Entry point for AWS Lambda behind an API Gateway proxy integration

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/iliyamo/volunteer-slot-sync/internal/app"
	"github.com/iliyamo/volunteer-slot-sync/internal/serverless"
)

func main() {
	a := app.Bootstrap(context.Background()) // config is read once per container
	defer a.Close()
	lambda.Start(serverless.Handler(a.Echo))
}

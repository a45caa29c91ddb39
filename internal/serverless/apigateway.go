// Package serverless runs the echo application behind AWS API Gateway proxy
// events.
package serverless

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"github.com/labstack/echo/v4"
)

// ProxyHandler is the signature lambda.Start expects for proxy integrations.
type ProxyHandler func(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Handler adapts e to API Gateway (REST, payload v1) proxy events.
func Handler(e *echo.Echo) ProxyHandler {
	return echoadapter.New(e).ProxyWithContext
}

package main

import (
	"github.com/Darshan-360/service-checkout/internal/bootstrap"
	"github.com/Darshan-360/service-checkout/internal/handler"
)

func main() {
	bootstrap.RunFunction(handler.OpCreateOrder)
}

package middleware

import (
	midsec "github.com/Kesh3805/job-portal/middleware/security"
	"github.com/gin-gonic/gin"
)

type RouteOpt struct {
	IsAuth bool
	Secret []byte
}

func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path,
			midsec.Middleware(midsec.DefaultOptions(opt.Secret)),
			handler,
		)
	} else {
		r.POST(path, handler)
	}
}

func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path,
			midsec.Middleware(midsec.DefaultOptions(opt.Secret)),
			handler,
		)
	} else {
		r.GET(path, handler)
	}
}

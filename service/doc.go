// Package service is the caller-facing facade over one pooled client.
//
// A Service binds a single pool lease to invoke, batch, and stream
// operations. Every Service must be released exactly once; the With
// helpers scope acquisition so release runs on every exit path,
// including panics:
//
//	err := service.With(ctx, cfg, func(ctx context.Context, svc *service.Service) error {
//		text, err := svc.Invoke(ctx, "summarize this")
//		if err != nil {
//			return err
//		}
//		fmt.Println(text)
//		return nil
//	})
//
// Remote failures surface to the caller unchanged; the service never
// retries.
package service

package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/llmops/config"
	"github.com/jonwraymond/llmops/pool"
	"github.com/jonwraymond/llmops/provider"
	"github.com/jonwraymond/llmops/service"
)

func ExampleWithPool() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"four"}}]}`)
	}))
	defer srv.Close()

	p, err := pool.New(pool.Options{Factory: provider.NewOpenAIFactory()})
	if err != nil {
		fmt.Println("pool:", err)
		return
	}
	defer p.Close()

	cfg := config.Config{
		ModelName: "gpt-4",
		APIKey:    "sk-example",
		BaseURL:   srv.URL,
	}
	err = service.WithPool(context.Background(), p, cfg, func(ctx context.Context, svc *service.Service) error {
		text, err := svc.Invoke(ctx, "what is two plus two?")
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	})
	if err != nil {
		fmt.Println("invoke:", err)
	}
	// Output: four
}

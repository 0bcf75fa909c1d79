package kserve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"feature-store-service/internal/config"
	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

var inferenceServiceGVR = schema.GroupVersionResource{
	Group:    "serving.kserve.io",
	Version:  "v1beta1",
	Resource: "inferenceservices",
}

type servingClient struct {
	client        dynamic.Interface
	enabled       bool
	defaultNS     string
	runtimeImage  string
	ingressDomain string
}

// NewServingClient creates a KServe client adapter
func NewServingClient(cfg *config.ServingConfig) (output.ServingClient, error) {
	if !cfg.Enabled {
		return &servingClient{enabled: false}, nil
	}

	restCfg, err := restConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	defaultNS := cfg.Namespace
	if defaultNS == "" {
		defaultNS = "default"
	}

	return &servingClient{
		client:        client,
		enabled:       true,
		defaultNS:     defaultNS,
		runtimeImage:  cfg.RuntimeImage,
		ingressDomain: cfg.IngressDomain,
	}, nil
}

func restConfig(cfg *config.ServingConfig) (*rest.Config, error) {
	if cfg.InCluster {
		return rest.InClusterConfig()
	}
	kubeconfig := cfg.KubeConfigPath
	if kubeconfig == "" {
		home, _ := os.UserHomeDir()
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

func (c *servingClient) IsAvailable() bool {
	return c.enabled
}

// Deploy creates the InferenceService, or takes over an existing one
// with the same name. A CR can outlive its endpoint record when a
// previous rollout was interrupted, so apply-over is the safe path.
func (c *servingClient) Deploy(
	ctx context.Context,
	endpoint *domain.InferenceEndpoint,
	version *domain.ModelVersion,
) (*output.ServingDeployment, error) {
	namespace := endpoint.Namespace
	if namespace == "" {
		namespace = c.defaultNS
	}

	obj := c.buildInferenceServiceCR(endpoint, version)
	resource := c.client.Resource(inferenceServiceGVR).Namespace(namespace)

	created, err := resource.Create(ctx, obj, metav1.CreateOptions{})
	if k8serrors.IsAlreadyExists(err) {
		existing, getErr := resource.Get(ctx, endpoint.Name, metav1.GetOptions{})
		if getErr != nil {
			return nil, fmt.Errorf("get existing inferenceservice: %w", getErr)
		}
		existing.Object["spec"] = obj.Object["spec"]
		existing.SetLabels(obj.GetLabels())
		created, err = resource.Update(ctx, existing, metav1.UpdateOptions{})
	}
	if err != nil {
		return nil, fmt.Errorf("apply kserve inferenceservice: %w", err)
	}

	return &output.ServingDeployment{
		ExternalID: string(created.GetUID()),
	}, nil
}

func (c *servingClient) Undeploy(ctx context.Context, namespace, name string) error {
	if namespace == "" {
		namespace = c.defaultNS
	}

	err := c.client.Resource(inferenceServiceGVR).
		Namespace(namespace).
		Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil {
		return fmt.Errorf("delete kserve inferenceservice: %w", err)
	}

	return nil
}

func (c *servingClient) GetStatus(ctx context.Context, namespace, name string) (*output.ServingStatus, error) {
	if namespace == "" {
		namespace = c.defaultNS
	}

	obj, err := c.client.Resource(inferenceServiceGVR).
		Namespace(namespace).
		Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get kserve inferenceservice: %w", err)
	}

	status := parseStatus(obj)
	if status.Ready && status.URL == "" && c.ingressDomain != "" {
		// Cluster-local URL when the controller has not published one
		status.URL = fmt.Sprintf("http://%s.%s.%s", name, namespace, c.ingressDomain)
	}
	return status, nil
}

func (c *servingClient) buildInferenceServiceCR(
	endpoint *domain.InferenceEndpoint,
	version *domain.ModelVersion,
) *unstructured.Unstructured {
	labels := map[string]interface{}{
		"featurestore.ai-platform/endpoint-id":   endpoint.ID.String(),
		"featurestore.ai-platform/model-name":    endpoint.ModelName,
		"featurestore.ai-platform/model-version": fmt.Sprintf("%d", version.Version),
	}
	for k, v := range endpoint.Labels {
		labels[k] = v
	}

	modelSpec := map[string]interface{}{
		"storageUri": version.ArtifactURI,
	}
	if version.Framework != "" {
		modelSpec["modelFormat"] = map[string]interface{}{
			"name": version.Framework,
		}
	}

	// Runtime image from the endpoint, falling back to the configured
	// default serving runtime
	image := endpoint.RuntimeImage
	if image == "" {
		image = c.runtimeImage
	}
	if image != "" {
		modelSpec["runtime"] = image
	}

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "serving.kserve.io/v1beta1",
			"kind":       "InferenceService",
			"metadata": map[string]interface{}{
				"name":   endpoint.Name,
				"labels": labels,
			},
			"spec": map[string]interface{}{
				"predictor": map[string]interface{}{
					"model": modelSpec,
				},
			},
		},
	}
}

func parseStatus(obj *unstructured.Unstructured) *output.ServingStatus {
	status := &output.ServingStatus{}

	statusMap, found, _ := unstructured.NestedMap(obj.Object, "status")
	if !found {
		return status
	}

	status.URL, _, _ = unstructured.NestedString(statusMap, "url")

	conditions, _, _ := unstructured.NestedSlice(statusMap, "conditions")
	if cond := findCondition(conditions, "Ready"); cond != nil {
		state, _ := cond["status"].(string)
		status.Ready = state == "True"
		if state == "False" {
			status.Error, _ = cond["message"].(string)
		}
	}

	return status
}

func findCondition(conditions []interface{}, condType string) map[string]interface{} {
	for _, c := range conditions {
		cond, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if t, _ := cond["type"].(string); t == condType {
			return cond
		}
	}
	return nil
}

var _ output.ServingClient = (*servingClient)(nil)
